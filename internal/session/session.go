// Package session owns the lifetime of one wizard run: the estate record, the
// three-stage state machine, and the single in-flight extraction guard. Nothing
// here survives the session; there is no persistence by design.
package session

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"kyogisho/internal/estate"
)

// Stage is the wizard step a session is in.
type Stage string

const (
	// StageUploading waits for a sheet upload or an explicit manual start.
	StageUploading Stage = "uploading"
	// StageEditing accepts editor operations on the record.
	StageEditing Stage = "editing"
	// StagePreviewing serves the assembled document; only "back" leaves it.
	StagePreviewing Stage = "previewing"
)

// Session is one active wizard run. All field access goes through mu; the
// extracting semaphore is taken without the lock so an upload in flight never
// blocks reads or edits of other sessions.
type Session struct {
	ID string

	mu     sync.Mutex
	stage  Stage
	record *estate.Record

	// extracting admits a single gateway call at a time (reentrancy guard).
	extracting *semaphore.Weighted
}

// New creates a session in the uploading stage with an empty record.
func New() *Session {
	return &Session{
		ID:         "s_" + uuid.NewString(),
		stage:      StageUploading,
		record:     estate.NewRecord(),
		extracting: semaphore.NewWeighted(1),
	}
}

// Snapshot is a read-only view of a session handed to the transport layer.
type Snapshot struct {
	ID     string        `json:"id"`
	Stage  Stage         `json:"stage"`
	Record estate.Record `json:"record"`
}

// snapshotLocked copies the session state; callers must hold mu.
func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{ID: s.ID, Stage: s.stage, Record: *s.record.Clone()}
}

// Snapshot returns a deep copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}
