package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "Test1 OK",
			args: []string{"cmd", "-s", "https://hs.example", "-t", "10", "-m", "sealed-only", "-j", "j.db", "-o", "out", "-p", "8", "-l", "debug"},
			expected: &Config{
				HomeserverURL:    "https://hs.example",
				RequestTimeout:   10 * time.Second,
				SealPolicy:       "sealed-only",
				JournalPath:      "j.db",
				ExportDir:        "out",
				BatchParallelism: 8,
				LogLevel:         "debug",
			},
		},
		{
			name:     "Test2 command tokens ignored",
			args:     []string{"cmd", "-s", "https://hs.example", "scan", "mxc://example.org/abc"},
			expected: &Config{HomeserverURL: "https://hs.example"},
		},
		{name: "Test3 incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestParseFlags_TimeoutOnlyWhenGiven(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cmd", "-l", "warn"}
	cfg := &Config{RequestTimeout: 1500 * time.Millisecond}
	parseFlags(cfg)
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)

	os.Args = []string{"cmd", "-t", "0"}
	parseFlags(cfg)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
}
