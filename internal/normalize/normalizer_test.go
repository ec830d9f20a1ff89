package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x-stp/rxcovid/internal/feed"
)

func TestRepair(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Clean domain", "example.com", "example.com"},
		{"Clean subdomain", "www.example.com", "www.example.com"},
		{"Uppercase is kept", "EXAMPLE.COM", "EXAMPLE.COM"},
		{"Wildcard", "*.example.com", "www.example.com"},
		{"Wildcard only at start", "a.*.example.com", "a.*.example.com"},
		{"IPv4 and marker", `1.2.3.4\032example.com`, "example.com"},
		{"Three numeric groups", `10.0.1\032example.com`, "example.com"},
		{"Marker without IP", `foo\032bar.com`, "foobar.com"},
		{"Two numeric groups is not an IP", `1.2\032example.com`, "1.2example.com"},
		{"Every marker is removed", `a\032b\032c.com`, "abc.com"},
		{"Every IP and marker is removed", `1.2.3.4\032a.com 5.6.7.8\032b.com`, "a.com b.com"},
		{"Wildcard and marker", `*.foo\032bar.com`, "www.foobar.com"},
		{"Adjacent IP and marker runs", `1.2.3.4\0325.6.7.8\032b.com`, "b.com"},
		{"Preceding character is kept", `mail-1.2.3.4\032x.com`, "mail-x.com"},
		{"Long leading number is not an IP", `1234.5.6.7\032x.com`, "1234.5.6.7x.com"},
		{"Five numeric groups is not an IP", `1.2.3.4.5\032x.com`, "1.2.3.4.5x.com"},
		{"Real space is kept", "foo bar.com", "foo bar.com"},
		{"Empty", "", ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, Repair(tc.input))
		})
	}
}

func TestRepairIsIdempotentOnCleanInput(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"example.com", "www.foobar.com", "192.168.1.1", "xn--bcher-kva.example"} {
		assert.Equal(t, s, Repair(s))
		assert.Equal(t, Repair(s), Repair(Repair(s)))
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"example.com", "http://example.com", "https://example.com"},
		Expand("example.com", DefaultPrefixes))
	assert.Equal(t, []string{"example.com"}, Expand("example.com", nil))
}

func TestFilterUnique(t *testing.T) {
	t.Parallel()

	records := []feed.RawRecord{
		{Classification: "covid", Match: "b.com"},
		{Classification: "virus", Match: "noise.com"},
		{Classification: "corona", Match: "a.com"},
		{Classification: "covid", Match: "b.com"},
		{Classification: "Virus", Match: "kept.com"},
		{Classification: "covid", Match: ""},
	}

	assert.Equal(t, []string{"b.com", "a.com", "kept.com"}, FilterUnique(records, "virus"))
	assert.Equal(t, []string{"b.com", "noise.com", "a.com", "kept.com"}, FilterUnique(records, ""))
}

func TestFilterUniqueExcludedMatchDoesNotShadow(t *testing.T) {
	t.Parallel()

	records := []feed.RawRecord{
		{Classification: "virus", Match: "both.com"},
		{Classification: "covid", Match: "both.com"},
	}
	assert.Equal(t, []string{"both.com"}, FilterUnique(records, "virus"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	records := []feed.RawRecord{
		{Classification: "covid", Match: "example.com"},
		{Classification: "virus", Match: "virus-only.com"},
		{Classification: "covid", Match: "*.example.org"},
		{Classification: "corona", Match: `1.2.3.4\032example.net`},
		{Classification: "covid", Match: "example.com"},
	}

	t.Run("Without expansion", func(t *testing.T) {
		t.Parallel()
		lines, st := Normalize(records, DefaultOptions())
		assert.Equal(t, []string{"example.com", "www.example.org", "example.net"}, lines)
		assert.Equal(t, Stats{
			Rows:          5,
			Excluded:      1,
			Duplicates:    1,
			Unique:        3,
			WildcardFixes: 1,
			EscapeFixes:   1,
			Lines:         3,
		}, st)
	})

	t.Run("With expansion", func(t *testing.T) {
		t.Parallel()
		opts := DefaultOptions()
		opts.Prepend = true
		lines, st := Normalize(records[:1], opts)
		assert.Equal(t, []string{"example.com", "http://example.com", "https://example.com"}, lines)
		assert.Equal(t, 3, st.Lines)
	})

	t.Run("Custom prefixes", func(t *testing.T) {
		t.Parallel()
		lines, _ := Normalize(records[:1], Options{Prepend: true, Prefixes: []string{"hxxp://"}})
		assert.Equal(t, []string{"example.com", "hxxp://example.com"}, lines)
	})
}

func TestNormalizeNeverEmitsExcluded(t *testing.T) {
	t.Parallel()

	var records []feed.RawRecord
	for i := 0; i < 50; i++ {
		class := "covid"
		if i%3 == 0 {
			class = "virus"
		}
		records = append(records, feed.RawRecord{Classification: class, Match: fmt.Sprintf("d%d.com", i)})
	}

	opts := DefaultOptions()
	opts.Prepend = true
	lines, st := Normalize(records, opts)
	require.Equal(t, 17, st.Excluded)
	for _, l := range lines {
		for i := 0; i < 50; i += 3 {
			d := fmt.Sprintf("d%d.com", i)
			assert.NotContains(t, []string{d, "http://" + d, "https://" + d}, l)
		}
	}
	assert.Len(t, lines, 33*3)
}

func TestNormalizeKeepsRepairCollisions(t *testing.T) {
	t.Parallel()

	records := []feed.RawRecord{
		{Classification: "covid", Match: "*.a.com"},
		{Classification: "covid", Match: "www.a.com"},
	}
	lines, _ := Normalize(records, DefaultOptions())
	assert.Equal(t, []string{"www.a.com", "www.a.com"}, lines)
}

func BenchmarkNormalize(b *testing.B) {
	records := make([]feed.RawRecord, 0, 10000)
	for i := 0; i < 10000; i++ {
		m := fmt.Sprintf("*.host%d.example.com", i)
		if i%2 == 0 {
			m = fmt.Sprintf(`10.0.0.%d\032host%d.example.com`, i%255, i)
		}
		records = append(records, feed.RawRecord{Classification: "covid", Match: m})
	}
	opts := Options{Prepend: true}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Normalize(records, opts)
	}
}
