package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const examplesDir = "../../examples"

func TestExamples_BPMNRoundTrip(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(examplesDir, "*.bpmn"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	e, _ := newTestEngine(t)
	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			report, err := e.RoundTrip(context.Background(), data)
			require.NoError(t, err)
			assert.True(t, report.Stable, report.Diff)
		})
	}
}

func TestExamples_DocumentToXMLAndBack(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(examplesDir, "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	e, _ := newTestEngine(t)
	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			want, result := e.ValidateDocument(context.Background(), data)
			require.True(t, result.Valid(), "%v", result.Errors)

			out, err := e.DocumentToXML(context.Background(), data)
			require.NoError(t, err)

			got, err := e.ToProcess(context.Background(), out)
			require.NoError(t, err)

			wantJSON, err := json.Marshal(want)
			require.NoError(t, err)
			gotJSON, err := json.Marshal(got)
			require.NoError(t, err)
			assert.JSONEq(t, string(wantJSON), string(gotJSON))
		})
	}
}
