// Package renderer renders reports as markdown, from text/template files
// embedded in the binary.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

// funcs are available in every template.
var funcs = template.FuncMap{
	// money formats an amount with its currency.
	"money": func(v decimal.Decimal, code string) string { return valutatrade.M(v, code).String() },
	// amount formats a balance with the digits of its currency.
	"amount": func(v decimal.Decimal, code string) string { return v.StringFixed(valutatrade.Digits(code)) },
	// rate formats an exchange rate with enough significant digits.
	"rate": formatRate,
	"time": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Local().Format("2006-01-02 15:04:05")
	},
	"age": func(now, t time.Time) string { return now.Sub(t).Truncate(time.Second).String() },
	"plural": func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	},
}

// formatRate uses 2 decimals for large rates, and more for small ones so
// that at least 6 significant digits are shown.
func formatRate(r float64) string {
	if r >= 100 {
		return strconv.FormatFloat(r, 'f', 2, 64)
	}
	s := strconv.FormatFloat(r, 'g', 6, 64)
	if strings.ContainsAny(s, "e") {
		return strconv.FormatFloat(r, 'f', 10, 64)
	}
	return s
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			content, err = fs.ReadFile(templates, "templates/"+file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
