package notifier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Template struct {
	Subject string `yaml:"subject" json:"subject"`
	Body    string `yaml:"body" json:"body"`
}

// Catalog holds outbound templates keyed by name. Placeholders use
// {{key}} and are substituted from the data bag at send time.
type Catalog struct {
	Templates map[string]Template `yaml:"templates" json:"templates"`
}

func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Templates) == 0 {
		return Catalog{}, fmt.Errorf("template catalog empty")
	}
	return cat, nil
}

// Render substitutes the data bag into the named template. Unknown
// placeholders are left in place so a template bug is visible in the sent
// mail rather than silently blanked.
func (c Catalog) Render(name string, data map[string]interface{}) (Template, error) {
	tpl, ok := c.Templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template %q", name)
	}
	for key, value := range data {
		placeholder := "{{" + key + "}}"
		rendered := fmt.Sprint(value)
		tpl.Subject = strings.ReplaceAll(tpl.Subject, placeholder, rendered)
		tpl.Body = strings.ReplaceAll(tpl.Body, placeholder, rendered)
	}
	return tpl, nil
}

func DefaultCatalog() Catalog {
	return Catalog{Templates: map[string]Template{
		"automation_success": {
			Subject: "Your OTT subscription code is ready",
			Body: "Hi {{name}},\n\nYour claim {{claim_id}} has been fulfilled.\n" +
				"Platform: {{platform}}\nActivation code: {{ott_code}}\n\n" +
				"Redeem it in the platform app under Subscriptions > Redeem Code.\n\n" +
				"SYSTECH DIGITAL Support",
		},
		"automation_failed": {
			Subject: "We could not complete your OTT claim",
			Body: "Hi {{name}},\n\nWe could not complete claim {{claim_id}}: {{reason}}.\n" +
				"Our team has been notified; reply to this mail if you need help.\n\n" +
				"SYSTECH DIGITAL Support",
		},
		"otp_verification": {
			Subject: "Your verification code",
			Body: "Hi,\n\nYour one-time verification code is {{code}}. " +
				"It expires in {{ttl_minutes}} minutes.\n\n" +
				"SYSTECH DIGITAL Support",
		},
	}}
}
