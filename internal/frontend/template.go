package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
	"github.com/gin-gonic/gin"
)

// Field is one labelled input on the form
type Field struct {
	Index int
	Name  string
	Step  string
}

// PageData is passed to the index template
type PageData struct {
	Nonce       string
	Fields      []Field
	PredictPath string
}

// LoadIndexTemplate parses index.html from the template filesystem
func LoadIndexTemplate(templates fs.FS) (*template.Template, error) {
	tmpl, err := template.ParseFS(templates, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return tmpl, nil
}

// Fields returns the form inputs in feature order
func Fields() []Field {
	fields := make([]Field, 0, analysis.FeatureCount)
	for i, name := range analysis.FeatureLabels {
		step := "1"
		switch name {
		case "BMI":
			step = "0.1"
		case "DiabetesPedigreeFunction":
			step = "0.001"
		}
		fields = append(fields, Field{Index: i, Name: name, Step: step})
	}
	return fields
}

// RenderIndex renders the form page with the provided nonce
func RenderIndex(c *gin.Context, tmpl *template.Template, data PageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	return nil
}
