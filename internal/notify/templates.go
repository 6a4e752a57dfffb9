package notify

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
	"github.com/tutordesk/tutordesk-agent/internal/event"
)

// Recipient selects who a template addresses.
type Recipient string

const (
	RecipientUser     Recipient = "user"
	RecipientOperator Recipient = "operator"
)

// Template is one notification to build when its event fires. Text uses
// {field} placeholders resolved against the event's fields.
type Template struct {
	Event     string    `yaml:"event"`
	Recipient Recipient `yaml:"recipient"`
	Text      string    `yaml:"text"`
	Priority  Priority  `yaml:"priority"`
}

// DefaultTemplates returns the built-in event→notification mapping.
func DefaultTemplates() []Template {
	return []Template{
		{Event: event.TypeRegistrationComplete, Recipient: RecipientUser, Priority: PriorityNormal,
			Text: "Welcome, {name}! Your registration is complete. Type *menu* anytime to see what I can do."},
		{Event: event.TypeSubmissionConfirmed, Recipient: RecipientUser, Priority: PriorityNormal,
			Text: "Thanks, {name}! Your {subject} {kind} has been submitted. A tutor will review it shortly."},
		{Event: event.TypeSubmissionConfirmed, Recipient: RecipientOperator, Priority: PriorityNormal,
			Text: "New submission from {name} ({user_id}): {subject} / {kind}."},
		{Event: event.TypePaymentConfirmed, Recipient: RecipientUser, Priority: PriorityNormal,
			Text: "Payment confirmed, {name}. You're all set!"},
		{Event: event.TypeSupportStarted, Recipient: RecipientOperator, Priority: PriorityHigh,
			Text: "Support session started by {name} ({user_id})."},
		{Event: event.TypeSupportMessageReceived, Recipient: RecipientOperator, Priority: PriorityHigh,
			Text: "[support] {name}: {text}"},
		{Event: event.TypeSupportEnded, Recipient: RecipientOperator, Priority: PriorityNormal,
			Text: "Support session with {user_id} ended."},
	}
}

// TemplatesFromYAML parses a template set from YAML. Unknown events or
// empty text are configuration errors.
func TemplatesFromYAML(data []byte) ([]Template, error) {
	var tpls []Template
	if err := yaml.Unmarshal(data, &tpls); err != nil {
		return nil, fmt.Errorf("parsing notification templates: %w", err)
	}
	for i, t := range tpls {
		if !event.Known(t.Event) {
			return nil, fmt.Errorf("template %d: unknown event %q", i, t.Event)
		}
		if t.Text == "" {
			return nil, fmt.Errorf("template %d (%s): empty text", i, t.Event)
		}
		if t.Recipient != RecipientUser && t.Recipient != RecipientOperator {
			return nil, fmt.Errorf("template %d (%s): unknown recipient %q", i, t.Event, t.Recipient)
		}
	}
	return tpls, nil
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// render substitutes {field} placeholders from fields. An unresolved
// placeholder returns a *errors.TemplateError.
func render(tpl string, fields map[string]string) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		key := strings.Trim(m, "{}")
		if v, ok := fields[key]; ok {
			return v
		}
		if missing == "" {
			missing = key
		}
		return m
	})
	if missing != "" {
		return "", &berrors.TemplateError{Template: tpl, Placeholder: missing}
	}
	return out, nil
}
