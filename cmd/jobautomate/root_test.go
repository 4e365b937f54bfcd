package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanathsadiga/jobautomate/internal/config"
	"github.com/sanathsadiga/jobautomate/internal/logging"
	"github.com/sanathsadiga/jobautomate/internal/model"
)

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("candidate:\n  years: 4\n"), 0644))

	viper.Set("config", path)
	t.Cleanup(func() { viper.Set("config", "") })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.CandidateYears)
}

func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	viper.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Cleanup(func() { viper.Set("config", "") })

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	viper.Set("config", "")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestBuildRegistry(t *testing.T) {
	cfg, err := config.Parse([]byte(`
sources:
  greenhouse:
    - name: Acme
      board_token: acme
`))
	require.NoError(t, err)

	reg := buildRegistry(cfg, logging.Discard())
	assert.Equal(t, []string{"zoho", "google", "microsoft", "amazon", "acme"}, reg.Keys())

	for name, class := range map[string]model.Class{
		"Zoho":      model.ClassLight,
		"GOOGLE":    model.ClassLight,
		"microsoft": model.ClassHeavy,
		"Amazon":    model.ClassHeavy,
		"acme":      model.ClassLight,
	} {
		s, ok := reg.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, class, s.Class(), name)
	}

	_, ok := reg.Lookup("netflix")
	assert.False(t, ok)
}

func TestPrintJobs(t *testing.T) {
	var buf bytes.Buffer
	printJobs(&buf, []model.StoredJob{
		{Company: "Zoho", Title: "Developer", Location: "Chennai", Match: true, MatchReason: "Entry-level / fresher role", CreatedAt: time.Now()},
		{Company: "Google", Title: "A very long staff software engineering title that will be clipped", MatchReason: "Requires 8+ years; user has 2"},
	})

	out := buf.String()
	assert.Contains(t, out, "Entry-level / fresher role")
	assert.Contains(t, out, "…")
	assert.Contains(t, out, "Total: 2 jobs (1 matched)")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "abc…", clip("abcdef", 4))
}
