package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersUpdateRegistry(t *testing.T) {
	EnableMetrics()
	m := GetMetrics()

	m.RecordRequest("download", 200, 1024)
	m.RecordRequest("download", 0, 0)
	m.AddRecords("read", 10)
	m.RecordOutput(7, 99, true)
	m.RecordRun(2*time.Second, "", time.Unix(1580515200, 0))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.NetworkRequestsTotal.WithLabelValues("download", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NetworkRequestsTotal.WithLabelValues("download", "error")))
	assert.Equal(t, float64(1024), testutil.ToFloat64(m.NetworkBytesTotal.WithLabelValues("download")))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.RecordsTotal.WithLabelValues("read")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.OutputLines))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutputChanged))
	assert.Equal(t, float64(1580515200), testutil.ToFloat64(m.SourceLastModified))

	m.RecordRun(time.Second, "parse", time.Time{})
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RunFailuresTotal.WithLabelValues("parse")))
}

func TestWriteTextfile(t *testing.T) {
	EnableMetrics()
	GetMetrics().RecordOutput(3, 30, false)

	path := filepath.Join(t.TempDir(), "collector", "rxcovid.prom")
	require.NoError(t, WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "rxcovid_output_bytes 30"))
}
