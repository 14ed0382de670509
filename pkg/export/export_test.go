package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	t := Table{Title: "Attendance", Columns: []string{"Roll", "Name", "Present"}}
	t.AddRow("301", "Abdullah", "20")
	t.AddRow("302", "Fatima")
	return t
}

func TestCSVRender(t *testing.T) {
	out, err := CSV{}.Render(sampleTable())
	require.NoError(t, err)

	body := strings.TrimPrefix(string(out), "\ufeff")
	assert.Equal(t, "Roll,Name,Present\n301,Abdullah,20\n302,Fatima,\n", body)
}

func TestCSVRequiresColumns(t *testing.T) {
	_, err := CSV{}.Render(Table{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := PDF{}.Render(sampleTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestFor(t *testing.T) {
	r, err := For(FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", r.ContentType())

	_, err = For("xlsx")
	assert.Error(t, err)
}
