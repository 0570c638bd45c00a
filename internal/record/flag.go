package record

import (
	"encoding/json"
	"fmt"
)

// Flag is a tri-state status (RTO enabled, heating).
type Flag int

const (
	FlagUnset Flag = iota
	FlagYes
	FlagNo
)

// Display markers used by CSV files.
const (
	displayYes = "有"
	displayNo  = "無"
)

// ParseFlag reads a stored canonical value ("yes", "no", anything else unset).
func ParseFlag(v any) Flag {
	s, _ := v.(string)
	switch s {
	case "yes":
		return FlagYes
	case "no":
		return FlagNo
	default:
		return FlagUnset
	}
}

// FlagFromDisplay maps the localized present/absent marker to a flag.
func FlagFromDisplay(s string) Flag {
	switch s {
	case displayYes:
		return FlagYes
	case displayNo:
		return FlagNo
	default:
		return FlagUnset
	}
}

// Value returns the canonical stored form: "yes", "no" or nil.
func (f Flag) Value() any {
	switch f {
	case FlagYes:
		return "yes"
	case FlagNo:
		return "no"
	default:
		return nil
	}
}

// Display returns the localized CSV text.
func (f Flag) Display() string {
	switch f {
	case FlagYes:
		return displayYes
	case FlagNo:
		return displayNo
	default:
		return ""
	}
}

func (f Flag) String() string {
	switch f {
	case FlagYes:
		return "yes"
	case FlagNo:
		return "no"
	default:
		return "unset"
	}
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value())
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = FlagUnset
	case string:
		switch t {
		case "yes":
			*f = FlagYes
		case "no":
			*f = FlagNo
		case "", "unset":
			*f = FlagUnset
		default:
			return fmt.Errorf("invalid flag %q", t)
		}
	default:
		return fmt.Errorf("invalid flag %v", v)
	}
	return nil
}
