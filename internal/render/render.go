// Package render performs literal {{name}} substitution for notification
// templates. There is deliberately no control flow: templates are plain
// text/HTML with placeholders only.
package render

import (
	"sort"
	"strings"

	"shipnotify/internal/domain"
)

// Template holds the three renderable parts of a notification. Heading is
// optional and only used by HTML email layouts.
type Template struct {
	Type    domain.TemplateType
	Subject string
	Heading string
	Body    string
}

type Rendered struct {
	Subject string
	Heading string
	Body    string
}

// Render substitutes {{name}} placeholders from vars into all three parts.
// Placeholders with no matching variable are left unresolved in the output:
// a visible "{{invoice_amount}}" in a delivered email is easier to diagnose
// than silently dropped content. Rendering never fails.
func Render(tpl Template, vars map[string]string) Rendered {
	return Rendered{
		Subject: substitute(tpl.Subject, vars),
		Heading: substitute(tpl.Heading, vars),
		Body:    substitute(tpl.Body, vars),
	}
}

func substitute(s string, vars map[string]string) string {
	if s == "" || len(vars) == 0 {
		return s
	}
	// Stable iteration keeps renders deterministic when values themselves
	// contain placeholder-looking text.
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s = strings.ReplaceAll(s, "{{"+k+"}}", vars[k])
	}
	return s
}
