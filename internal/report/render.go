package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/robby/linearpulse/internal/analytics"
)

//go:embed templates/*
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).ParseFS(templateFS, "templates/*.html"))

type stat struct {
	Value string
	Label string
}

type chartRef struct {
	CID string
	Alt string
}

type activeRow struct {
	Name        string
	SharedWith  string
	Progress    int
	BarColor    string
	Target      string
	Status      string
	StatusColor string
}

type completedRow struct {
	Name        string
	CompletedAt string
	Teams       []string
}

// page is the data handed to the email templates.
type page struct {
	Title       string
	DateLine    string
	Team        string
	GeneratedAt string

	Stats  []stat
	Charts []chartRef

	// snapshot reports
	Shared int
	Active []activeRow

	// periodic reports
	Period    analytics.PeriodStats
	Completed []completedRow
}

func render(name string, p page) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, p); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
