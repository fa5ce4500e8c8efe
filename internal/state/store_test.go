package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
)

func sampleDocument() *Document {
	doc := NewDocument("analytics", "dev")
	doc.Resources["stream"] = []map[string]interface{}{
		{"stream_name": "events-stream", "shard_count": float64(2)},
	}
	doc.Resources["functions"] = []map[string]interface{}{
		{"function_name": "ingest", "reserved_concurrency": nil},
	}
	doc.Resources["alarms"] = []map[string]interface{}{
		{"alarm_name": "analytics-dev-errors", "actions_enabled": true},
	}
	return doc
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path, logger.Nop())

	doc := sampleDocument()
	require.NoError(t, store.Save(doc))

	loaded, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, doc.Version, loaded.Version)
	assert.Equal(t, doc.Project, loaded.Project)
	assert.Equal(t, doc.Environment, loaded.Environment)
	assert.Equal(t, doc.Resources, loaded.Resources)
}

func TestStore_SavePreservesPreviousFileAsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path, logger.Nop())

	first := sampleDocument()
	require.NoError(t, store.Save(first))

	second := sampleDocument()
	second.Resources["stream"] = []map[string]interface{}{
		{"stream_name": "events-stream", "shard_count": float64(4)},
	}
	require.NoError(t, store.Save(second))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)
	assert.Contains(t, string(backup), `"shard_count": 2`)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(current), `"shard_count": 4`)
}

func TestStore_LoadMissingFileGivesGuidance(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"), logger.Nop())

	_, err := store.Load()

	require.Error(t, err)
	assert.Equal(t, errors.TypeNotFound, errors.TypeOf(err))

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.NotEmpty(t, typed.Solutions)
}

func TestStore_LoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path, logger.Nop()).Load()

	require.Error(t, err)
	assert.Equal(t, errors.TypeState, errors.TypeOf(err))
}

func TestStore_SaveRejectsInvalidDocument(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"), logger.Nop())

	doc := sampleDocument()
	doc.Project = ""

	err := store.Save(doc)

	require.Error(t, err)
	assert.Equal(t, errors.TypeValidation, errors.TypeOf(err))
}

func TestStore_LoadOldVersionStillWorks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path, logger.Nop())

	doc := sampleDocument()
	doc.Version = "0.9"
	require.NoError(t, store.Save(doc))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "0.9", loaded.Version)
}

func TestStore_SaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	store := NewStore(path, logger.Nop())

	require.NoError(t, store.Save(sampleDocument()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
