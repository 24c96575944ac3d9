// validation.go
package morestickers

import (
	"encoding/json"
	"fmt"
	"reflect"
)

var validTypes = map[string]bool{
	StringType: true,
	BoolType:   true,
	NumberType: true,
	JSONType:   true,
	EnumType:   true,
}

func isValidType(t string) bool {
	return validTypes[t]
}

// validateFreeform accepts any value that survives JSON encoding, which is
// what every Storage backend requires.
func validateFreeform(value interface{}) error {
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("%w: not JSON-serializable: %v", ErrInvalidValue, err)
	}
	return nil
}

func validateValue(value interface{}, def PreferenceDefinition) error {
	switch def.Type {
	case StringType:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%w: expected string", ErrInvalidValue)
		}
	case BoolType:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: expected boolean", ErrInvalidValue)
		}
	case NumberType:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("%w: expected number", ErrInvalidValue)
		}
	case JSONType:
		if err := validateFreeform(value); err != nil {
			return err
		}
	case EnumType:
		if len(def.AllowedValues) == 0 {
			return fmt.Errorf("%w: enum has no allowed values", ErrInvalidValue)
		}
	default:
		return fmt.Errorf("%w: unsupported type", ErrInvalidType)
	}

	if len(def.AllowedValues) > 0 {
		found := false
		for _, allowed := range def.AllowedValues {
			if reflect.DeepEqual(value, allowed) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: value not in allowed values", ErrInvalidValue)
		}
	}

	if def.ValidateFunc != nil {
		if err := def.ValidateFunc(value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}
	return nil
}
