package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Categories is an ordered list of goal tags stored as a JSON array.
type Categories []string

func (c Categories) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Categories) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*c = Categories{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into Categories", value)
	}

	if len(raw) == 0 {
		*c = Categories{}
		return nil
	}

	var out []string
	err := json.Unmarshal(raw, &out)
	if err != nil {
		return fmt.Errorf("invalid categories column: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*c = out
	return nil
}

// MarshalJSON renders nil as an empty array so clients never see null.
func (c Categories) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(c))
}
