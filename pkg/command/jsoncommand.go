package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

// Reserved payload parameters that control how other parameters are decoded.
const (
	paramDateFormat = "dateFormat"
	paramLocale     = "locale"
)

// DefaultDateFormat is the layout used for date parameters when the payload
// does not carry an explicit dateFormat parameter.
const DefaultDateFormat = "2006-01-02"

// JSONCommand is the parsed view of one command execution attempt: the wrapper,
// the decoded payload with typed accessors, the resolved entity ids and the
// resolved idempotency key. Constructed once per attempt, never mutated.
type JSONCommand struct {
	commandID      string
	wrapper        Wrapper
	raw            json.RawMessage
	params         map[string]json.RawMessage
	idempotencyKey string
}

// NewJSONCommand parses the payload for a wrapper. A nil or empty payload
// yields a command with no parameters; a payload that is not a JSON object
// is rejected.
func NewJSONCommand(wrapper Wrapper, payload json.RawMessage, idempotencyKey string) (*JSONCommand, error) {
	params := map[string]json.RawMessage{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &params); err != nil {
			return nil, fmt.Errorf("failed to parse command payload: %w", err)
		}
	}
	return &JSONCommand{
		wrapper:        wrapper,
		raw:            payload,
		params:         params,
		idempotencyKey: idempotencyKey,
	}, nil
}

// FromExistingCommand rebuilds the parsed command for an approval replay,
// carrying the id of the audit entry the payload was restored from.
func FromExistingCommand(commandID string, wrapper Wrapper, payload json.RawMessage, idempotencyKey string) (*JSONCommand, error) {
	cmd, err := NewJSONCommand(wrapper, payload, idempotencyKey)
	if err != nil {
		return nil, err
	}
	cmd.commandID = commandID
	return cmd, nil
}

// CommandID is the audit entry id, set only on the approval replay path.
func (c *JSONCommand) CommandID() string { return c.commandID }

// Wrapper returns the descriptor this command was parsed from.
func (c *JSONCommand) Wrapper() Wrapper { return c.wrapper }

// JSON returns the raw serialized payload.
func (c *JSONCommand) JSON() json.RawMessage { return c.raw }

// EntityID returns the target resource id from the wrapper.
func (c *JSONCommand) EntityID() int64 { return c.wrapper.EntityID() }

// SubentityID returns the target sub-resource id from the wrapper.
func (c *JSONCommand) SubentityID() int64 { return c.wrapper.SubentityID() }

// IdempotencyKey returns the key resolved for this execution attempt.
func (c *JSONCommand) IdempotencyKey() string { return c.idempotencyKey }

// ParameterExists reports whether the payload carries the named parameter,
// including an explicit null.
func (c *JSONCommand) ParameterExists(name string) bool {
	_, ok := c.params[name]
	return ok
}

// StringValueOfNamed returns the named string parameter, or "" when absent.
func (c *JSONCommand) StringValueOfNamed(name string) string {
	raw, ok := c.params[name]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// Int64ValueOfNamed returns the named integer parameter, or 0 when absent.
func (c *JSONCommand) Int64ValueOfNamed(name string) int64 {
	raw, ok := c.params[name]
	if !ok {
		return 0
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v
}

// BoolValueOfNamed returns the named boolean parameter, or false when absent.
func (c *JSONCommand) BoolValueOfNamed(name string) bool {
	raw, ok := c.params[name]
	if !ok {
		return false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v
}

// DecimalValueOfNamed returns the named decimal parameter. Accepts both JSON
// numbers and strings so monetary amounts survive without float rounding.
func (c *JSONCommand) DecimalValueOfNamed(name string) (decimal.Decimal, error) {
	raw, ok := c.params[name]
	if !ok {
		return decimal.Zero, fmt.Errorf("parameter %q not present", name)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parameter %q is not a decimal: %w", name, err)
	}
	return v, nil
}

// DateFormat returns the payload's dateFormat parameter (a Go time layout),
// or DefaultDateFormat.
func (c *JSONCommand) DateFormat() string {
	if f := c.StringValueOfNamed(paramDateFormat); f != "" {
		return f
	}
	return DefaultDateFormat
}

// Locale parses the payload's locale parameter as a BCP 47 tag.
// Returns language.Und when the parameter is absent.
func (c *JSONCommand) Locale() (language.Tag, error) {
	loc := c.StringValueOfNamed(paramLocale)
	if loc == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(loc)
	if err != nil {
		return language.Und, fmt.Errorf("parameter %q is not a valid locale: %w", paramLocale, err)
	}
	return tag, nil
}

// DateValueOfNamed parses the named date parameter with the payload's date format.
func (c *JSONCommand) DateValueOfNamed(name string) (time.Time, error) {
	s := c.StringValueOfNamed(name)
	if s == "" {
		return time.Time{}, fmt.Errorf("parameter %q not present", name)
	}
	t, err := time.Parse(c.DateFormat(), s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parameter %q is not a date in format %q: %w", name, c.DateFormat(), err)
	}
	return t, nil
}

// MapValueOfNamed decodes the named parameter as a nested object.
func (c *JSONCommand) MapValueOfNamed(name string) (map[string]any, error) {
	raw, ok := c.params[name]
	if !ok {
		return nil, fmt.Errorf("parameter %q not present", name)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parameter %q is not an object: %w", name, err)
	}
	return v, nil
}

// IsChangeInStringParameterNamed reports whether the payload carries the named
// parameter with a value different from the existing one. Handlers use these
// to build the changes diff on update operations.
func (c *JSONCommand) IsChangeInStringParameterNamed(name, existing string) bool {
	if !c.ParameterExists(name) {
		return false
	}
	return c.StringValueOfNamed(name) != existing
}

// IsChangeInInt64ParameterNamed reports a changed integer parameter.
func (c *JSONCommand) IsChangeInInt64ParameterNamed(name string, existing int64) bool {
	if !c.ParameterExists(name) {
		return false
	}
	return c.Int64ValueOfNamed(name) != existing
}

// IsChangeInDecimalParameterNamed reports a changed decimal parameter.
// A malformed value counts as a change so validation surfaces it downstream.
func (c *JSONCommand) IsChangeInDecimalParameterNamed(name string, existing decimal.Decimal) bool {
	if !c.ParameterExists(name) {
		return false
	}
	v, err := c.DecimalValueOfNamed(name)
	if err != nil {
		return true
	}
	return !v.Equal(existing)
}
