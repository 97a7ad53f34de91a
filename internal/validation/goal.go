package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxExerciseLength = 100

var (
	ErrExerciseRequired = errors.New("exercise is required")
	ErrExerciseTooLong  = errors.New("exercise is too long (max 100 characters)")
	ErrCycleInvalid     = errors.New("microcycle must be a positive number")
	ErrCategoriesFormat = errors.New(`categories must be a JSON array of strings, e.g. ["Strength","Legs"]`)
)

// ValidateExercise rejects blank or oversized exercise names.
func ValidateExercise(exercise string) error {
	trimmed := strings.TrimSpace(exercise)
	if trimmed == "" {
		return ErrExerciseRequired
	}
	if utf8.RuneCountInString(trimmed) > MaxExerciseLength {
		return ErrExerciseTooLong
	}
	return nil
}

func ValidateCycle(cycle int) error {
	if cycle < 1 {
		return ErrCycleInvalid
	}
	return nil
}

// PositiveOrDefault returns n, or 1 when n is not positive.
func PositiveOrDefault(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ParseCategories decodes categories typed as raw JSON. It accepts an array of
// strings, null, or a JSON string that itself holds such an array. Null and
// empty input yield an empty, non-nil slice.
func ParseCategories(raw []byte) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCategoriesFormat, err)
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return []string{}, nil
		}
		// one level of string wrapping only
		if inner[0] == '"' {
			return nil, ErrCategoriesFormat
		}
		return ParseCategories([]byte(inner))
	}

	var categories []string
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCategoriesFormat, err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}
