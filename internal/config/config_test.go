package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100000, cfg.Extraction.MaxChars)
	assert.Equal(t, "antiword", cfg.Extraction.LegacyWordCommand)
	assert.Equal(t, 30*time.Second, cfg.Extraction.LegacyWordTimeout)
	assert.Equal(t, "tika", cfg.Extraction.OCR.Engine)
	assert.Equal(t, 25, cfg.Search.ResultsPerPage)
	assert.True(t, cfg.Audit.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Kafka.PublishTimeout)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: "9090"
storage:
  root: /srv/archive
extraction:
  legacy_word_timeout: 5s
  ocr:
    engine: tesseract
elasticsearch:
  index_name: docs_test
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("ARCHIVE_STORAGE_ROOT", "/mnt/override")
	t.Setenv("ARCHIVE_REINDEX_WORKERS", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/mnt/override", cfg.Storage.Root)
	assert.Equal(t, 5*time.Second, cfg.Extraction.LegacyWordTimeout)
	assert.Equal(t, "tesseract", cfg.Extraction.OCR.Engine)
	assert.Equal(t, "docs_test", cfg.Elasticsearch.IndexName)
	assert.Equal(t, 8, cfg.Reindex.Workers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
