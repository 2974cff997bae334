package model

// FlagType is the severity class of an eligibility flag
type FlagType string

const (
	FlagIneligible      FlagType = "ineligible"
	FlagMaybeIneligible FlagType = "maybe ineligible"
	FlagEligible        FlagType = "eligible"
	FlagDisabled        FlagType = "disabled"
)

// TriggerManual is the trigger carried by flags produced from an operator override
const TriggerManual = "manual"

// Severity ranks the flag type for display precedence (higher wins)
func (t FlagType) Severity() int {
	switch t {
	case FlagIneligible:
		return 2
	case FlagMaybeIneligible:
		return 1
	default:
		return 0
	}
}

// Valid reports whether t is one of the known flag types
func (t FlagType) Valid() bool {
	switch t {
	case FlagIneligible, FlagMaybeIneligible, FlagEligible, FlagDisabled:
		return true
	}
	return false
}

// Flag is a structured eligibility signal. Flags are values: copy, never mutate.
type Flag struct {
	Name    string   `json:"name" yaml:"name"`
	Type    FlagType `json:"type" yaml:"type"`
	Details string   `json:"details" yaml:"details"`
	Trigger string   `json:"trigger" yaml:"trigger"` // Stable identifier, used to match persisted overrides
}

// HasIneligible reports whether any flag in the list is of the ineligible class
func HasIneligible(flags []Flag) bool {
	for _, f := range flags {
		if f.Type == FlagIneligible {
			return true
		}
	}
	return false
}

// Headline picks the flag a caller should display: the first ineligible flag,
// else the first maybe-ineligible one. ok is false when the entry reads as eligible.
func Headline(flags []Flag) (Flag, bool) {
	for _, f := range flags {
		if f.Type == FlagIneligible {
			return f, true
		}
	}
	for _, f := range flags {
		if f.Type == FlagMaybeIneligible {
			return f, true
		}
	}
	return Flag{}, false
}
