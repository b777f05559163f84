package views

import (
	"embed"
	"html/template"
	"strings"

	"github.com/mamadbah2/jewelstock/internal/domain/models"
	"github.com/mamadbah2/jewelstock/internal/service/reporting"
)

//go:embed templates/*.html
var files embed.FS

// Funcs are the helpers available to every page.
var Funcs = template.FuncMap{
	"yen":         func(raw string) string { return reporting.FormatYen(models.ParseAmount(raw)) },
	"bucketLabel": reporting.BucketLabel,
	"inc":         func(i int) int { return i + 1 },
	"join":        strings.Join,
}

// Parse loads the embedded page templates. Pages are addressed by file name.
func Parse() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "templates/*.html")
}
