// Package intent classifies inbound chat input into symbolic intents.
//
// Classification is deliberately dumb: exact button-ID lookup first, then an
// ordered keyword rule table evaluated top to bottom with case-insensitive
// substring matching. The order of the table is load-bearing — specific
// phrases ("end chat") sit above the broad groups ("chat") that would
// otherwise shadow them.
package intent

import "strings"

// Intent is the symbolic classification of one inbound input.
type Intent string

const (
	IntentCancel   Intent = "cancel"
	IntentEndChat  Intent = "end_chat"
	IntentSupport  Intent = "support"
	IntentHomework Intent = "homework"
	IntentPay      Intent = "pay"
	IntentFaq      Intent = "faq"
	IntentHelp     Intent = "help"
	IntentMainMenu Intent = "main_menu"
	IntentConfirm  Intent = "confirm"
	IntentText     Intent = "text"
	IntentImage    Intent = "image"
	IntentUnknown  Intent = "unknown"
)

// knownIntents is the closed vocabulary accepted from rule overrides.
var knownIntents = map[Intent]bool{
	IntentCancel:   true,
	IntentEndChat:  true,
	IntentSupport:  true,
	IntentHomework: true,
	IntentPay:      true,
	IntentFaq:      true,
	IntentHelp:     true,
	IntentMainMenu: true,
	IntentConfirm:  true,
	IntentText:     true,
	IntentImage:    true,
}

// IsKnown reports whether i is a member of the closed intent vocabulary.
func IsKnown(i Intent) bool {
	return knownIntents[i] || i == IntentUnknown
}

// Button action IDs understood by the extractor. Buttons bypass keyword
// scanning entirely.
const (
	ButtonHomework = "menu_homework"
	ButtonPay      = "menu_pay"
	ButtonSupport  = "menu_support"
	ButtonFaq      = "menu_faq"
	ButtonConfirm  = "confirm"
	ButtonCancel   = "cancel"
	ButtonEndChat  = "end_chat"
	ButtonHelp     = "help"
	ButtonMainMenu = "main_menu"
)

var buttonIntents = map[string]Intent{
	ButtonHomework: IntentHomework,
	ButtonPay:      IntentPay,
	ButtonSupport:  IntentSupport,
	ButtonFaq:      IntentFaq,
	ButtonConfirm:  IntentConfirm,
	ButtonCancel:   IntentCancel,
	ButtonEndChat:  IntentEndChat,
	ButtonHelp:     IntentHelp,
	ButtonMainMenu: IntentMainMenu,
}

// Extractor maps raw input to an Intent using an ordered rule table.
type Extractor struct {
	rules []Rule
}

// NewExtractor creates an extractor with the default rule table.
func NewExtractor() *Extractor {
	return &Extractor{rules: DefaultRules()}
}

// NewExtractorWithRules creates an extractor with a custom ordered rule table.
func NewExtractorWithRules(rules []Rule) *Extractor {
	return &Extractor{rules: rules}
}

// Rules returns the extractor's rule table in evaluation order.
func (e *Extractor) Rules() []Rule {
	return e.rules
}

// Extract classifies rawInput. When isButton is true, rawInput is treated as
// a button action ID and matched exactly against the known button set.
// Unmatched input yields IntentUnknown. Extract is pure: no state, no side
// effects.
func (e *Extractor) Extract(rawInput string, isButton bool) Intent {
	if isButton {
		if in, ok := buttonIntents[rawInput]; ok {
			return in
		}
		return IntentUnknown
	}

	text := strings.ToLower(strings.TrimSpace(rawInput))
	if text == "" {
		return IntentUnknown
	}

	for _, r := range e.rules {
		for _, p := range r.Patterns {
			if strings.Contains(text, p) {
				return r.Intent
			}
		}
	}
	return IntentUnknown
}
