// Package form holds the field and interview types exchanged with clients.
package form

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is one fillable widget of the first page, positioned in percent of
// the page size with a top-left origin
type Field struct {
	ID           string  `json:"id"`
	SimpleID     int     `json:"simple_id"`
	Label        string  `json:"label"`
	Explanation  string  `json:"explanation"`
	Top          float64 `json:"top"`
	Left         float64 `json:"left"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Value        *string `json:"value"`
	IsAutoFilled bool    `json:"isAutoFilled"`

	// falsy is set when the client sent false or 0 as the value
	falsy bool
}

// PlaceholderLabel is the label a field carries until its real one is known
func PlaceholderLabel(simpleID int) string {
	return fmt.Sprintf("Field %d", simpleID)
}

// PlaceholderExplanation is shown while labels are being resolved
const PlaceholderExplanation = "Analyzing..."

// IsEmpty reports whether the field has no value yet. A JSON false or 0
// sent by a client counts as no value.
func (f Field) IsEmpty() bool {
	return f.Value == nil || *f.Value == "" || f.falsy
}

// UnmarshalJSON accepts any JSON scalar as a value, since clients echo back
// checkbox states and numbers as they hold them
func (f *Field) UnmarshalJSON(data []byte) error {
	type plain Field
	aux := struct {
		*plain
		Value    json.RawMessage `json:"value"`
		SimpleID json.RawMessage `json:"simple_id"`
	}{plain: (*plain)(f)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	value, err := scalarString(aux.Value)
	if err != nil {
		return fmt.Errorf("field value: %w", err)
	}
	f.Value = value
	f.falsy = isFalsy(aux.Value)

	if len(aux.SimpleID) > 0 && string(aux.SimpleID) != "null" {
		id, err := scalarString(aux.SimpleID)
		if err != nil || id == nil {
			return fmt.Errorf("field simple_id: invalid value %s", aux.SimpleID)
		}
		n, err := strconv.Atoi(strings.TrimSpace(*id))
		if err != nil {
			return fmt.Errorf("field simple_id: %w", err)
		}
		f.SimpleID = n
	}

	return nil
}

// scalarString renders a JSON string, number or boolean as text. Null and
// absent values yield nil.
func scalarString(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}

	var s string
	switch v := v.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		return nil, fmt.Errorf("unsupported value %s", raw)
	}
	return &s, nil
}

// isFalsy reports whether raw is the JSON literal false or a numeric zero
func isFalsy(raw json.RawMessage) bool {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}
	switch v := v.(type) {
	case bool:
		return !v
	case float64:
		return v == 0
	default:
		return false
	}
}

// Extraction is the outcome of one interview answer. A nil NextQuestion
// means the interview is complete.
type Extraction struct {
	ExtractedData map[string]string `json:"extracted_data"`
	NextQuestion  *string           `json:"next_question"`
}
