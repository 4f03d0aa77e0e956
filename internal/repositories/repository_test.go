package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSheetTableName(t *testing.T) {
	tests := []struct {
		name  string
		sheet string
		want  string
	}{
		{"plain", "FCL", "excelData_FCL"},
		{"lowercase kept", "lcl", "excelData_lcl"},
		{"spaces replaced", "Rate Sheet 2025", "excelData_Rate_Sheet_2025"},
		{"punctuation replaced", "FCL/LCL", "excelData_FCL_LCL"},
		{"empty falls back", "", "excelData_unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, sheetTableName(tt.sheet))
		})
	}
}

func TestFilterPlaceholderRows(t *testing.T) {
	rows := []map[string]any{
		{"Port": "Haiphong", "Rate": int64(120)},
		{"Port": "/", "Rate": int64(0)},
		{"Port": "Singapore", "Rate": "/"},
		{"Port": "Da Nang", "Rate": int64(80)},
	}

	kept := filterPlaceholderRows(rows)
	require.Len(t, kept, 2)
	require.Equal(t, "Haiphong", kept[0]["Port"])
	require.Equal(t, "Da Nang", kept[1]["Port"])
}

func TestFilterPlaceholderRows_AllPlaceholders(t *testing.T) {
	rows := []map[string]any{
		{"Port": "/"},
		{"Port": "/", "Rate": "/"},
	}
	require.Empty(t, filterPlaceholderRows(rows))
}

func TestFilterPlaceholderRows_SlashInsideTextIsKept(t *testing.T) {
	rows := []map[string]any{
		{"Route": "Haiphong/Singapore"},
	}
	require.Len(t, filterPlaceholderRows(rows), 1)
}

func TestManifestFor(t *testing.T) {
	headers := []string{"Port", "Rate", "Carrier", "Note"}
	first := map[string]any{"Rate": int64(120), "Port": "Haiphong", "Note": "spot"}

	// Manifest keeps header order but lists only keys the first row carries
	require.Equal(t, []string{"Port", "Rate", "Note"}, manifestFor(headers, first))
}
