// Package notify sends the welcome email for new subscribers through SES.
package notify

import (
	"fmt"
	"os"

	"github.com/ignite/signup-capture/internal/domain"
	"github.com/osteele/liquid"
)

// Default templates. Bindings: name, email, landing_page_url.
const (
	DefaultSubject = "Welcome aboard, {{ name }}!"
	DefaultBody    = `<p>Hi {{ name | escape }},</p>
<p>Thanks for signing up{% if landing_page_url != "unknown" %} on {{ landing_page_url | escape }}{% endif %}.
We'll keep {{ email | escape }} posted.</p>`
)

// Templates holds the parsed welcome subject and HTML body.
type Templates struct {
	subject *liquid.Template
	body    *liquid.Template
}

// ParseTemplates compiles the subject and body. Empty strings select the
// defaults.
func ParseTemplates(subject, body string) (*Templates, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if body == "" {
		body = DefaultBody
	}

	engine := liquid.NewEngine()
	st, err := engine.ParseString(subject)
	if err != nil {
		return nil, fmt.Errorf("parsing subject template: %w", err)
	}
	bt, err := engine.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parsing body template: %w", err)
	}
	return &Templates{subject: st, body: bt}, nil
}

// LoadTemplates reads the body template from path when set.
func LoadTemplates(subject, path string) (*Templates, error) {
	var body string
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", path, err)
		}
		body = string(data)
	}
	return ParseTemplates(subject, body)
}

// Render produces the subject and HTML body for s.
func (t *Templates) Render(s domain.Subscriber) (subject, body string, err error) {
	bindings := liquid.Bindings{
		"name":             s.Name,
		"email":            s.Email,
		"landing_page_url": s.LandingPageURL,
	}
	subject, serr := t.subject.RenderString(bindings)
	if serr != nil {
		return "", "", fmt.Errorf("rendering subject: %w", serr)
	}
	body, berr := t.body.RenderString(bindings)
	if berr != nil {
		return "", "", fmt.Errorf("rendering body: %w", berr)
	}
	return subject, body, nil
}
