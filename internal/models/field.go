package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FieldType enumerates the input kinds a custom field can take.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldTextarea FieldType = "textarea"
)

// FieldTypes lists every supported field type.
var FieldTypes = []FieldType{FieldText, FieldNumber, FieldDate, FieldSelect, FieldCheckbox, FieldTextarea}

// Field is an administrator defined student attribute.
type Field struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Label     string       `db:"label" json:"label"`
	Type      FieldType    `db:"type" json:"type"`
	Required  bool         `db:"required" json:"required"`
	Visible   bool         `db:"visible" json:"visible"`
	Options   FieldOptions `db:"options" json:"options"`
	SortOrder int          `db:"sort_order" json:"sort_order"`
	Active    bool         `db:"active" json:"active"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// FieldValue is the value of one custom field for one student.
type FieldValue struct {
	StudentID string    `db:"student_id" json:"student_id"`
	FieldID   string    `db:"field_id" json:"field_id"`
	FieldName string    `db:"field_name" json:"field_name"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FieldOptions holds select choices, persisted as a JSON array in a text column.
type FieldOptions []string

// Value marshals options to JSON text.
func (o FieldOptions) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(o))
	if err != nil {
		return nil, fmt.Errorf("marshal field options: %w", err)
	}
	return string(data), nil
}

// Scan unmarshals JSON text into options.
func (o *FieldOptions) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*o = FieldOptions{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for FieldOptions", value)
	}
	if len(data) == 0 {
		*o = FieldOptions{}
		return nil
	}
	var opts []string
	if err := json.Unmarshal(data, &opts); err != nil {
		return fmt.Errorf("unmarshal field options: %w", err)
	}
	*o = opts
	return nil
}
