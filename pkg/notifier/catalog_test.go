package notifier

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	cat := DefaultCatalog()

	tpl, err := cat.Render("automation_success", map[string]interface{}{
		"name":     "Alice",
		"claim_id": "CLAIM-1",
		"platform": "Netflix",
		"ott_code": "KEY-42",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(tpl.Body, "Hi Alice,") {
		t.Fatalf("name not substituted: %q", tpl.Body)
	}
	if !strings.Contains(tpl.Body, "KEY-42") || !strings.Contains(tpl.Body, "Netflix") {
		t.Fatalf("code or platform not substituted: %q", tpl.Body)
	}
	if strings.Contains(tpl.Body, "{{") {
		t.Fatalf("unreplaced placeholder remains: %q", tpl.Body)
	}
}

func TestRenderLeavesUnknownPlaceholdersVisible(t *testing.T) {
	cat := Catalog{Templates: map[string]Template{
		"greeting": {Subject: "Hello {{name}}", Body: "Code: {{missing}}"},
	}}

	tpl, err := cat.Render("greeting", map[string]interface{}{"name": "Bob"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if tpl.Subject != "Hello Bob" {
		t.Fatalf("subject not rendered: %q", tpl.Subject)
	}
	if !strings.Contains(tpl.Body, "{{missing}}") {
		t.Fatalf("template bug must stay visible, got %q", tpl.Body)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := DefaultCatalog().Render("nope", nil); err == nil {
		t.Fatal("expected an error for an unknown template")
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	content := `templates:
  automation_success:
    subject: "Done {{claim_id}}"
    body: "Your code is {{ott_code}}"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	tpl, err := cat.Render("automation_success", map[string]interface{}{"claim_id": "C1", "ott_code": "K1"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if tpl.Subject != "Done C1" || tpl.Body != "Your code is K1" {
		t.Fatalf("unexpected render: %+v", tpl)
	}
}

func TestLoadCatalogDefaultsWhenUnset(t *testing.T) {
	cat, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("empty path must fall back to defaults: %v", err)
	}
	for _, name := range []string{"automation_success", "automation_failed", "otp_verification"} {
		if _, ok := cat.Templates[name]; !ok {
			t.Fatalf("default catalog missing %q", name)
		}
	}
}
