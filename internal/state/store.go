package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ujanalytics/costctl/internal/errors"
	"github.com/ujanalytics/costctl/internal/logger"
)

// DocumentVersion is the current state document schema version.
const DocumentVersion = "1.0"

// Document is the saved-configuration snapshot written before a stop
// and read back on start. Resources maps a resource kind to the saved
// configuration entries its manager produced.
type Document struct {
	Version     string                              `json:"version"`
	Timestamp   time.Time                           `json:"timestamp"`
	Project     string                              `json:"project"`
	Environment string                              `json:"environment"`
	Resources   map[string][]map[string]interface{} `json:"resources"`
	Metadata    map[string]string                   `json:"metadata,omitempty"`
}

// NewDocument creates an empty document stamped with the current time.
func NewDocument(project, environment string) *Document {
	return &Document{
		Version:     DocumentVersion,
		Timestamp:   time.Now().UTC(),
		Project:     project,
		Environment: environment,
		Resources:   map[string][]map[string]interface{}{},
	}
}

// Validate checks the document is complete enough to restore from.
func (d *Document) Validate() error {
	if d.Version == "" {
		return errors.New(errors.TypeValidation, "state document missing version")
	}
	if d.Project == "" || d.Environment == "" {
		return errors.New(errors.TypeValidation, "state document missing project or environment")
	}
	if d.Resources == nil {
		return errors.New(errors.TypeValidation, "state document missing resources section")
	}
	return nil
}

// Store persists state documents as JSON on the local filesystem.
type Store struct {
	path string
	log  logger.Logger
}

// NewStore creates a store writing to the given file path.
func NewStore(path string, log logger.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the file path the store writes to.
func (s *Store) Path() string {
	return s.path
}

// Save validates and writes the document. An existing file is renamed
// to <path>.backup first, so one prior snapshot always survives a
// partial write.
func (s *Store) Save(doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.New(errors.TypeState, "failed to create state directory").WithCause(err)
	}

	if _, err := os.Stat(s.path); err == nil {
		backupPath := s.path + ".backup"
		if err := os.Rename(s.path, backupPath); err != nil {
			return errors.New(errors.TypeState, "failed to back up previous state file").WithCause(err)
		}
		s.log.WithField("path", backupPath).Debug("previous state file preserved")
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.New(errors.TypeState, "failed to encode state document").WithCause(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.New(errors.TypeState, "failed to write state file").WithCause(err)
	}

	s.log.WithField("path", s.path).Info("state saved")
	return nil
}

// Load reads and validates the state document. A missing file is a
// state error with guidance, since start without a prior stop is the
// most common way to hit it.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.TypeNotFound,
				fmt.Sprintf("no saved state at %s", s.path)).
				WithSolutions(
					"Run 'costctl stop' first to save the running configuration",
					"Restore a snapshot from S3 with 'costctl backups restore'",
				)
		}
		return nil, errors.New(errors.TypeState, "failed to read state file").WithCause(err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.TypeState, "state file is not valid JSON").WithCause(err).
			WithSolutions("Restore a snapshot from S3 with 'costctl backups restore'")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if doc.Version != DocumentVersion {
		s.log.WithFields(map[string]interface{}{
			"found":    doc.Version,
			"expected": DocumentVersion,
		}).Warn("state document version differs, attempting to use it anyway")
	}

	return &doc, nil
}
