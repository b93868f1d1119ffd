package frontend

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/security"
	"github.com/gin-gonic/gin"
)

// NewIndexHandler serves the prediction form. The form posts its values
// as JSON to predictPath.
func NewIndexHandler(tmpl *template.Template, predictPath string) gin.HandlerFunc {
	fields := Fields()

	return func(c *gin.Context) {
		nonce := security.GetNonce(c)
		if nonce == "" {
			slog.Warn("CSP nonce not found in context, generating new one")
			var err error
			nonce, err = security.GenerateNonce()
			if err != nil {
				slog.Error("Failed to generate nonce", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
		}

		data := PageData{
			Nonce:       nonce,
			Fields:      fields,
			PredictPath: predictPath,
		}

		if err := RenderIndex(c, tmpl, data); err != nil {
			slog.Error("Failed to render index page", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
		}
	}
}
