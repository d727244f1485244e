package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Labels(t *testing.T) {
	tests := []struct {
		stage Stage
		name  string
		tag   string
	}{
		{StageScanning, "Scanning", "SCAN"},
		{StageIndexing, "Indexing", "INDEX"},
		{StageComplete, "Complete", "DONE"},
		{Stage(99), "Unknown", "???"},
		{Stage(-1), "Unknown", "???"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.stage.String())
			assert.Equal(t, tt.tag, tt.stage.Icon())
		})
	}
}

func TestIsTTY(t *testing.T) {
	// Given: writers that are not terminals

	// Then: neither a buffer nor nil counts as a TTY
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestNewConfig(t *testing.T) {
	var buf bytes.Buffer

	// Given: no options, everything defaults off
	cfg := NewConfig(&buf)
	assert.NotNil(t, cfg.Output)
	assert.False(t, cfg.ForcePlain)
	assert.False(t, cfg.NoColor)
	assert.Empty(t, cfg.Root)

	// When: options are applied they land on the matching fields
	cfg = NewConfig(&buf, WithForcePlain(true), WithNoColor(true), WithRoot("/srv/docs"))
	assert.True(t, cfg.ForcePlain)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "/srv/docs", cfg.Root)
}

func TestNewRenderer_FallsBackToPlain(t *testing.T) {
	// A buffer is never a TTY and ForcePlain short-circuits everything,
	// so both configs must end in the plain renderer.
	configs := map[string]Config{
		"force plain": NewConfig(&bytes.Buffer{}, WithForcePlain(true)),
		"non-tty":     NewConfig(&bytes.Buffer{}),
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			_, ok := NewRenderer(cfg).(*PlainRenderer)
			require.True(t, ok, "expected PlainRenderer")
		})
	}
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())

	_ = os.Unsetenv("NO_COLOR")
	assert.False(t, DetectNoColor())
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())

	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		_ = os.Unsetenv(v)
	}
	assert.False(t, DetectCI())
}
