package report

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"pct": func(f float64) string {
			return fmt.Sprintf("%.1f%%", f*100)
		},
		"width": func(f float64) string {
			return fmt.Sprintf("%.1f", f*100)
		},
	}

	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
