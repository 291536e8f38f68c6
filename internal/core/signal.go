package core

import (
	"encoding/json"
	"strings"
)

// Direction is the side a signal refers to.
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionUnknown Direction = "UNKNOWN"
)

// Action is what a signal asks for.
type Action string

const (
	ActionEntry   Action = "ENTRY"
	ActionExit    Action = "EXIT"
	ActionUnknown Action = "UNKNOWN"
)

// Signal type tokens with dedicated counters.
const (
	TypeLongEntry  = "LONG_ENTRY"
	TypeShortEntry = "SHORT_ENTRY"
	TypeLongExit   = "LONG_EXIT"
	TypeShortExit  = "SHORT_EXIT"
)

// SignalType is a backend signal type token decoded into direction and action.
// Raw is kept verbatim; tokens the dashboard does not recognise decode to the
// UNKNOWN variants instead of failing.
type SignalType struct {
	Raw       string
	Direction Direction
	Action    Action
}

// ParseSignalType decodes a token such as "LONG_ENTRY".
func ParseSignalType(raw string) SignalType {
	upper := strings.ToUpper(raw)
	t := SignalType{Raw: raw, Direction: DirectionUnknown, Action: ActionUnknown}

	switch {
	case strings.Contains(upper, string(DirectionLong)):
		t.Direction = DirectionLong
	case strings.Contains(upper, string(DirectionShort)):
		t.Direction = DirectionShort
	}

	switch {
	case strings.Contains(upper, string(ActionEntry)):
		t.Action = ActionEntry
	case strings.Contains(upper, string(ActionExit)):
		t.Action = ActionExit
	}
	return t
}

func (t SignalType) String() string { return t.Raw }

// Is reports whether the raw token equals token exactly.
func (t SignalType) Is(token string) bool { return t.Raw == token }

func (t *SignalType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = ParseSignalType("")
		return nil
	}
	*t = ParseSignalType(s)
	return nil
}

func (t SignalType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

// Family is the producing subsystem family.
type Family string

const (
	FamilyHybrid  Family = "HYBRID"
	FamilyElliott Family = "ELLIOTT"
	FamilyUnknown Family = "UNKNOWN"
)

// SystemTag is the backend's producing-subsystem string, e.g. "HYBRID_CRYPTO".
type SystemTag struct {
	Raw    string
	Family Family
}

// ParseSystemTag decodes a subsystem string by substring membership.
func ParseSystemTag(raw string) SystemTag {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, string(FamilyHybrid)):
		return SystemTag{Raw: raw, Family: FamilyHybrid}
	case strings.Contains(upper, string(FamilyElliott)):
		return SystemTag{Raw: raw, Family: FamilyElliott}
	default:
		return SystemTag{Raw: raw, Family: FamilyUnknown}
	}
}

func (s SystemTag) String() string { return s.Raw }

func (s *SystemTag) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = ParseSystemTag("")
		return nil
	}
	*s = ParseSystemTag(raw)
	return nil
}

func (s SystemTag) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw)
}
