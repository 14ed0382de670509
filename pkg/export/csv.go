package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
)

// CSV renders tables with encoding/csv. A UTF-8 BOM is written so spreadsheet
// tools display Bengali and Arabic names correctly.
type CSV struct{}

func (CSV) ContentType() string { return "text/csv; charset=utf-8" }

func (CSV) Render(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, errors.New("csv export needs at least one column")
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
