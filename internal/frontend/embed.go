package frontend

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templateFS embed.FS

// GetTemplateFS returns the embedded page templates
func GetTemplateFS() (fs.FS, error) {
	return fs.Sub(templateFS, "templates")
}
