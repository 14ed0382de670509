package export

import "fmt"

// Format names an output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Table is the tabular content handed to a renderer. Rows are positional and
// must have one cell per column.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// AddRow appends a row, padding or truncating it to the column count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Renderer turns a table into file bytes.
type Renderer interface {
	Render(t Table) ([]byte, error)
	ContentType() string
}

// For returns the renderer for format.
func For(format Format) (Renderer, error) {
	switch format {
	case FormatCSV:
		return CSV{}, nil
	case FormatPDF:
		return PDF{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
