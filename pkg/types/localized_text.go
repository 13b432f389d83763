package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// LocalizedText holds the English and Chinese renderings of a customer-facing
// string. It is stored as a JSONB column.
type LocalizedText struct {
	EN string `json:"en"`
	ZH string `json:"zh"`
}

// Resolve returns the text for the requested language tag, falling back to
// English when the requested language is empty or missing.
func (t LocalizedText) Resolve(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "zh") && t.ZH != "" {
		return t.ZH
	}
	return t.EN
}

// IsZero reports whether both renderings are empty.
func (t LocalizedText) IsZero() bool {
	return t.EN == "" && t.ZH == ""
}

// Value implements driver.Valuer.
func (t LocalizedText) Value() (driver.Value, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("localized text: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (t *LocalizedText) Scan(src any) error {
	if src == nil {
		*t = LocalizedText{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("localized text: unsupported source type %T", src)
	}
}
