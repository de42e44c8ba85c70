package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attendanceDataset() Dataset {
	return Dataset{
		Headers: []string{"Student ID", "Name", "Class", "Subject", "Time"},
		Rows: []map[string]string{
			{"Student ID": "S1", "Name": "Alice", "Class": "ClassX", "Subject": "Math", "Time": "2025-03-01 08:01:12"},
			{"Student ID": "S2", "Name": "Bob", "Class": "ClassX", "Subject": "Math", "Time": "2025-03-01 08:02:45"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(attendanceDataset())
	require.NoError(t, err)
	assert.Contains(t, string(out), "Student ID,Name,Class,Subject,Time\n")
	assert.Contains(t, string(out), "S1,Alice,ClassX,Math,2025-03-01 08:01:12\n")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(attendanceDataset(), "Attendance Report")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
