package domain

import "fmt"

// ActionLabel is the discrete trade decision assigned to a candle.
// The numeric values are the class indices used by the classifier.
type ActionLabel uint8

const (
	ActionNoTrade ActionLabel = iota
	ActionOpenLong
	ActionOpenShort
	ActionClose
	ActionAdd

	actionCount
)

// ActionLabelCount is the size of the closed label enumeration.
const ActionLabelCount = int(actionCount)

var actionNames = [actionCount]string{
	ActionNoTrade:   "no_trade",
	ActionOpenLong:  "open_long",
	ActionOpenShort: "open_short",
	ActionClose:     "close",
	ActionAdd:       "add",
}

var actionDirections = [actionCount]string{
	ActionNoTrade:   "none",
	ActionOpenLong:  "long",
	ActionOpenShort: "short",
	ActionClose:     "close",
	ActionAdd:       "add",
}

// AllActionLabels returns every label in class-index order.
func AllActionLabels() []ActionLabel {
	out := make([]ActionLabel, 0, ActionLabelCount)
	for a := ActionNoTrade; a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

// IsValid reports whether a is one of the enumerated labels.
func (a ActionLabel) IsValid() bool {
	return a < actionCount
}

// String returns the snake_case token of the label.
func (a ActionLabel) String() string {
	if !a.IsValid() {
		return fmt.Sprintf("ActionLabel(%d)", uint8(a))
	}
	return actionNames[a]
}

// Direction returns the trade direction reported for a predicted action.
func (a ActionLabel) Direction() string {
	if !a.IsValid() {
		return "none"
	}
	return actionDirections[a]
}

// ParseActionLabel parses a snake_case label token.
func ParseActionLabel(s string) (ActionLabel, error) {
	for i, name := range actionNames {
		if name == s {
			return ActionLabel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action label %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a ActionLabel) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("invalid action label %d", uint8(a))
	}
	return []byte(actionNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ActionLabel) UnmarshalText(b []byte) error {
	parsed, err := ParseActionLabel(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
