package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/schemadoc-go/internal/corpus"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

func TestMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObservePhase("render", 1500*time.Millisecond)
	m.ObserveReport(&corpus.Report{
		Types:      3,
		Properties: 5,
		Files:      32,
		Issues: []vocab.Warning{
			{Kind: vocab.WarnDanglingReference, Entity: "a"},
			{Kind: vocab.WarnDanglingReference, Entity: "b"},
			{Kind: vocab.WarnRenderFailure, Entity: "c"},
		},
	}, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "schemadoc.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "schemadoc_runs_total 1\n")
	assert.Contains(t, out, "schemadoc_run_failures_total 0\n")
	assert.Contains(t, out, `schemadoc_phase_duration_seconds{phase="render"} 1.5`)
	assert.Contains(t, out, `schemadoc_documents{kind="type"} 3`)
	assert.Contains(t, out, `schemadoc_documents{kind="property"} 5`)
	assert.Contains(t, out, `schemadoc_issues{kind="dangling_reference"} 2`)
	assert.Contains(t, out, `schemadoc_issues{kind="render_failure"} 1`)
	assert.Contains(t, out, "schemadoc_files_written 32\n")
	assert.Contains(t, out, "schemadoc_last_run_timestamp_seconds 1.7e+09\n")
}

func TestMetrics_ObserveFailure(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveFailure()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		if f.GetType().String() == "COUNTER" {
			values[f.GetName()] = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["schemadoc_runs_total"])
	assert.Equal(t, 1.0, values["schemadoc_run_failures_total"])
}
