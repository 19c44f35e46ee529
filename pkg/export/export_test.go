package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		Title:  "Complaint 123",
		Fields: []Field{{Label: "Title", Value: "Broken streetlight"}, {Label: "Status", Value: "pending"}},
		Sections: []Section{{
			Title:   "Status history",
			Headers: []string{"Seq", "Status", "Actor"},
			Rows:    [][]string{{"1", "pending", "citizen-1"}},
		}},
	}
}

func TestCSVExporterRendersSections(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDocument())
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "Broken streetlight"}, records[0])
	assert.Equal(t, []string{"Status history"}, records[2])
	assert.Equal(t, []string{"1", "pending", "citizen-1"}, records[4])
}

func TestExportersRejectRaggedRows(t *testing.T) {
	doc := sampleDocument()
	doc.Sections[0].Rows = append(doc.Sections[0].Rows, []string{"2"})

	_, err := NewCSVExporter().Render(doc)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(doc)
	assert.Error(t, err)
}

func TestPDFExporterProducesPDF(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDocument())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
