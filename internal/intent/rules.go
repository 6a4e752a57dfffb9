package intent

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Rule pairs a set of lowercase substring patterns with the intent they
// resolve to. Rules are evaluated in slice order; the first rule with any
// matching pattern wins.
type Rule struct {
	Patterns []string `yaml:"patterns"`
	Intent   Intent   `yaml:"intent"`
}

// DefaultRules returns the built-in ordered rule table.
//
// Order matters: exit phrases come before the generic support group so
// "end chat" never resolves to IntentSupport, and the bare cancel group
// comes after the exit phrases so "cancel chat" resolves to IntentEndChat.
func DefaultRules() []Rule {
	return []Rule{
		{Patterns: []string{"end chat", "exit chat", "cancel chat", "stop chat", "leave chat"}, Intent: IntentEndChat},
		{Patterns: []string{"cancel", "nevermind", "never mind", "go back"}, Intent: IntentCancel},
		{Patterns: []string{"main menu", "menu", "start over"}, Intent: IntentMainMenu},
		{Patterns: []string{"help"}, Intent: IntentHelp},
		{Patterns: []string{"support", "chat", "talk to", "tutor", "agent"}, Intent: IntentSupport},
		{Patterns: []string{"homework", "assignment", "submit", "submission"}, Intent: IntentHomework},
		{Patterns: []string{"pay", "payment", "fee", "invoice", "bill"}, Intent: IntentPay},
		{Patterns: []string{"faq", "frequently asked", "questions"}, Intent: IntentFaq},
		{Patterns: []string{"yes", "confirm", "okay", "ok", "done"}, Intent: IntentConfirm},
	}
}

// RulesFromYAML parses an ordered rule table from YAML. Every rule must name
// a known intent and carry at least one pattern; anything else is a
// configuration error.
func RulesFromYAML(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing intent rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("intent rules file contains no rules")
	}
	for i, r := range rules {
		if !IsKnown(r.Intent) || r.Intent == IntentUnknown {
			return nil, fmt.Errorf("rule %d: unknown intent %q", i, r.Intent)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no patterns", i, r.Intent)
		}
	}
	return rules, nil
}
