package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"display_id", "team_code", "status", "amount"},
		Rows: []map[string]string{
			{"display_id": "RCH-000001", "team_code": "ENT-1", "status": "pending", "amount": "25.00"},
			{"display_id": "RCH-000002", "team_code": "ENT-2", "status": "completed"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "display_id,team_code,status,amount", lines[0])
	assert.Equal(t, "RCH-000002,ENT-2,completed,", lines[2])
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"player_name", "amount"},
		Rows: []map[string]string{
			{"player_name": "=HYPERLINK(\"x\")", "amount": "-5.00"},
			{"player_name": "-rm", "amount": "@1"},
		},
	})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"'=HYPERLINK(""x"")",-5.00`, lines[1])
	assert.Equal(t, "'-rm,'@1", lines[2])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Recharge requests")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.True(t, FormatPDF.Valid())
	assert.False(t, Format("xlsx").Valid())
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))
	long := strings.Repeat("x", 100)
	assert.Len(t, truncate(long, 10), 16)
}
