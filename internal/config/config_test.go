package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x-stp/rxcovid/internal/feed"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, feed.DefaultNamePrefix, c.Prefix)
	assert.Equal(t, "virus", c.Exclude)
	assert.False(t, c.Prepend)
	assert.Equal(t, filepath.Join(DefaultOutputDir, DefaultOutputFile), c.OutputPath())
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rxcovid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listing_url: https://mirror.example/feed/
output_dir: /srv/siem
prepend: true
request_timeout: 45s
`), 0644))

	c := Default()
	require.NoError(t, c.LoadFile(path))

	assert.Equal(t, "https://mirror.example/feed/", c.ListingURL)
	assert.Equal(t, "/srv/siem", c.OutputDir)
	assert.True(t, c.Prepend)
	assert.Equal(t, 45*time.Second, c.RequestTimeout)
	assert.Equal(t, DefaultOutputFile, c.OutputFile, "absent keys keep their default")
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	c := Default()
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("prepend: [not, a, bool]\n"), 0644))
	assert.Error(t, c.LoadFile(bad))
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	c := Default()
	err := c.ApplyEnv(envMap(map[string]string{
		"RXCOVID_OUTPUT_FILE":         "list.txt",
		"RXCOVID_PREPEND":             "true",
		"RXCOVID_REQUESTS_PER_SECOND": "2.5",
		"RXCOVID_EXCLUDE":             "",
		"OUTPUT_DIR":                  "ignored-without-prefix",
	}))
	require.NoError(t, err)

	assert.Equal(t, "list.txt", c.OutputFile)
	assert.True(t, c.Prepend)
	assert.Equal(t, 2.5, c.RequestsPerSecond)
	assert.Equal(t, "", c.Exclude)
	assert.Equal(t, DefaultOutputDir, c.OutputDir)
}

func TestApplyEnvReportsBadValues(t *testing.T) {
	t.Parallel()

	c := Default()
	err := c.ApplyEnv(envMap(map[string]string{
		"RXCOVID_PREPEND":         "maybe",
		"RXCOVID_REQUEST_TIMEOUT": "soon",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RXCOVID_PREPEND")
	assert.Contains(t, err.Error(), "RXCOVID_REQUEST_TIMEOUT")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("RXCOVID_TEST_DOTENV=from-file\n"), 0644))
	t.Setenv("RXCOVID_TEST_DOTENV", "")
	os.Unsetenv("RXCOVID_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("RXCOVID_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Relative listing URL", func(c *Config) { c.ListingURL = "/bucket" }},
		{"Unsupported scheme", func(c *Config) { c.ListingURL = "ftp://bucket.example/" }},
		{"Empty prefix", func(c *Config) { c.Prefix = "" }},
		{"Empty output dir", func(c *Config) { c.OutputDir = "" }},
		{"Output file with directory", func(c *Config) { c.OutputFile = "sub/list.txt" }},
		{"Empty work dir", func(c *Config) { c.WorkDir = "" }},
		{"Negative rate", func(c *Config) { c.RequestsPerSecond = -1 }},
		{"Negative payload size", func(c *Config) { c.MaxPayloadSize = -1 }},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
