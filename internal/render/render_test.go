package render

import (
	"strings"
	"testing"

	"shipnotify/internal/domain"
)

func TestRenderSubstitutes(t *testing.T) {
	tpl := Template{
		Subject: "Update on {{tracking_code}}",
		Heading: "Hello {{customer_name}}",
		Body:    "Status: {{status}}. Ref {{tracking_code}}.",
	}
	out := Render(tpl, map[string]string{
		"tracking_code": "TRK123",
		"customer_name": "Ada",
		"status":        "delivered",
	})
	if out.Subject != "Update on TRK123" {
		t.Fatalf("subject: %q", out.Subject)
	}
	if out.Heading != "Hello Ada" {
		t.Fatalf("heading: %q", out.Heading)
	}
	if out.Body != "Status: delivered. Ref TRK123." {
		t.Fatalf("body: %q", out.Body)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	tpl := Template{Body: "Amount due: {{invoice_amount}} {{currency}}"}
	out := Render(tpl, map[string]string{"currency": "EUR"})
	if out.Body != "Amount due: {{invoice_amount}} EUR" {
		t.Fatalf("unknown placeholder should stay visible, got %q", out.Body)
	}
}

func TestRenderEmptyVars(t *testing.T) {
	tpl := Template{Subject: "{{a}}", Body: "plain"}
	out := Render(tpl, nil)
	if out.Subject != "{{a}}" || out.Body != "plain" {
		t.Fatalf("got %+v", out)
	}
}

func TestDefaultsNonEmptyForAllTypes(t *testing.T) {
	for _, tt := range domain.TemplateTypes() {
		tpl := Default(tt)
		if tpl.Subject == "" || tpl.Body == "" {
			t.Fatalf("default template for %s missing subject or body", tt)
		}
	}
}

func TestDefaultUnknownTypeFallsBack(t *testing.T) {
	tpl := Default(domain.TemplateType("bogus"))
	if tpl.Type != domain.TemplateStatusUpdate {
		t.Fatalf("expected status_update fallback, got %s", tpl.Type)
	}
	if !strings.Contains(tpl.Body, "{{tracking_code}}") {
		t.Fatalf("fallback body should reference tracking code")
	}
}
