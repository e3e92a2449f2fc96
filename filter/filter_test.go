package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/qbitprune/qbittorrent"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `hasTag("cross-seed")`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasTag("unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown variable",
			expression: `Popularity > 3`,
			wantErr:    true,
		},
		{
			name:       "non-boolean result",
			expression: `Size + 1`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `Tracker endsWith ".org" and Ratio > 2.0 and Size > gib(10) and not hasTag("keep")`,
		},
	}

	compiler := NewCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := compiler.Compile(tt.expression)

			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				require.True(t, errors.As(err, &compErr))
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tt.expression, f.Expression())
		})
	}
}

func TestMatch(t *testing.T) {
	now := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	torrent := &qbittorrent.TorrentInfo{
		Name:         "Linux.ISO.Collection",
		Category:     "software",
		TrackerHost:  "tracker.example.org",
		Size:         12 << 30,
		Ratio:        2.5,
		SeedingTime:  10 * day,
		LastActivity: now.Add(-3 * day),
		Tags:         []string{"Keep"},
	}

	tests := []struct {
		expression string
		want       bool
	}{
		{`Ratio > 2`, true},
		{`Size > gib(20)`, false},
		{`hasTag("keep")`, true},
		{`Name contains "ISO" and Category == "software"`, true},
		{`SeedDays >= 10 and InactiveDays < 3.5`, true},
		{`Tracker in ["a.org", "b.org"]`, false},
	}

	compiler := NewCompiler()
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			f, err := compiler.Compile(tt.expression)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(torrent, now))
		})
	}
}

func TestCompileCache(t *testing.T) {
	compiler := NewCompiler(WithCache(2))

	first, err := compiler.Compile(`Ratio > 1`)
	require.NoError(t, err)
	again, err := compiler.Compile(` Ratio > 1 `)
	require.NoError(t, err)
	assert.Same(t, first, again)

	_, err = compiler.Compile(`Ratio > 2`)
	require.NoError(t, err)
	_, err = compiler.Compile(`Ratio > 3`)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.Size())

	evicted, err := compiler.Compile(`Ratio > 1`)
	require.NoError(t, err)
	assert.NotSame(t, first, evicted)
}

func TestVariables(t *testing.T) {
	vars := Variables()
	assert.Contains(t, vars, "Ratio")
	assert.Contains(t, vars, "hasTag")
	assert.IsIncreasing(t, vars)
}
