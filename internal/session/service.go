package session

import (
	"context"
	"log/slog"

	"kyogisho/internal/document"
	"kyogisho/internal/estate"
	"kyogisho/internal/extract"
	"kyogisho/internal/platform/metrics"
	dErrors "kyogisho/pkg/domain-errors"
	"kyogisho/pkg/requestcontext"
)

// Service drives the wizard: it creates sessions, runs extraction, applies
// editor operations, and moves sessions through the stage machine. Operations
// are atomic per session — each one either completes under the session lock or
// leaves the record untouched.
type Service struct {
	store   *Store
	gateway extract.Gateway
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService wires the session service.
func NewService(store *Store, gateway extract.Gateway, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, gateway: gateway, logger: logger, metrics: m}
}

// Create starts a new session in the uploading stage.
func (s *Service) Create(ctx context.Context) Snapshot {
	sess := New()
	s.store.Put(sess)
	s.metrics.SessionsCreated.Inc()
	s.logger.InfoContext(ctx, "session created",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sess.ID,
	)
	return sess.Snapshot()
}

// Get returns the current state of a session.
func (s *Service) Get(_ context.Context, id string) (Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Delete discards a session.
func (s *Service) Delete(_ context.Context, id string) error {
	if _, err := s.store.Get(id); err != nil {
		return err
	}
	s.store.Delete(id)
	return nil
}

// Extract sends the uploaded sheet to the AI gateway, normalizes the result into
// the session record, and advances the session to editing.
//
// Only one extraction may be in flight per session; a concurrent attempt is
// rejected with a conflict. The gateway call runs outside the session lock, so
// cancellation or failure leaves the session exactly in its pre-upload state.
func (s *Service) Extract(ctx context.Context, id string, file extract.File) (Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}

	if !sess.extracting.TryAcquire(1) {
		return Snapshot{}, dErrors.New(dErrors.CodeConflict, "extraction already in progress")
	}
	defer sess.extracting.Release(1)

	sess.mu.Lock()
	if sess.stage != StageUploading {
		sess.mu.Unlock()
		return Snapshot{}, dErrors.Newf(dErrors.CodeConflict, "session is %s, not awaiting upload", sess.stage)
	}
	sess.mu.Unlock()

	s.metrics.ExtractionAttempts.Inc()
	raw, err := s.gateway.Extract(ctx, file)
	if err != nil {
		s.metrics.ExtractionFailures.Inc()
		s.logger.WarnContext(ctx, "extraction failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", id,
			"error", err,
		)
		return Snapshot{}, err
	}

	rec := estate.Normalize(raw)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stage != StageUploading {
		// Another path (manual start) won while the gateway was out. Keep that
		// record rather than overwriting the user's work.
		return Snapshot{}, dErrors.Newf(dErrors.CodeConflict, "session is %s, not awaiting upload", sess.stage)
	}
	sess.record = rec
	sess.stage = StageEditing
	s.logger.InfoContext(ctx, "extraction complete",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", id,
		"heirs", len(rec.Heirs),
		"properties", len(rec.Properties),
	)
	return sess.snapshotLocked(), nil
}

// StartManual skips extraction and moves the session to editing with its empty
// record, the fallback when the gateway fails or the user has no sheet.
func (s *Service) StartManual(_ context.Context, id string) (Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stage != StageUploading {
		return Snapshot{}, dErrors.Newf(dErrors.CodeConflict, "session is %s, not awaiting upload", sess.stage)
	}
	sess.stage = StageEditing
	return sess.snapshotLocked(), nil
}

// edit runs one editor operation under the session lock, in the editing stage
// only.
func (s *Service) edit(id, op string, fn func(*estate.Editor) error) (Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stage != StageEditing {
		return Snapshot{}, dErrors.Newf(dErrors.CodeConflict, "session is %s, not editing", sess.stage)
	}
	if err := fn(estate.NewEditor(sess.record)); err != nil {
		return Snapshot{}, err
	}
	s.metrics.EditorOperations.WithLabelValues(op).Inc()
	return sess.snapshotLocked(), nil
}

// SetDeceasedField overwrites one attribute of the deceased.
func (s *Service) SetDeceasedField(_ context.Context, id, field, value string) (Snapshot, error) {
	return s.edit(id, "set_deceased_field", func(ed *estate.Editor) error {
		return ed.SetDeceasedField(field, value)
	})
}

// AddHeir appends an empty heir.
func (s *Service) AddHeir(_ context.Context, id string) (Snapshot, error) {
	return s.edit(id, "add_heir", func(ed *estate.Editor) error {
		ed.AddHeir()
		return nil
	})
}

// UpdateHeir overwrites one field of the heir at index.
func (s *Service) UpdateHeir(_ context.Context, id string, index int, field, value string) (Snapshot, error) {
	return s.edit(id, "update_heir", func(ed *estate.Editor) error {
		return ed.UpdateHeir(index, field, value)
	})
}

// RemoveHeir deletes the heir at index and resets their assignments.
func (s *Service) RemoveHeir(_ context.Context, id string, index int) (Snapshot, error) {
	return s.edit(id, "remove_heir", func(ed *estate.Editor) error {
		return ed.RemoveHeir(index)
	})
}

// AddProperty appends an empty property with an unassigned entry.
func (s *Service) AddProperty(_ context.Context, id string) (Snapshot, error) {
	return s.edit(id, "add_property", func(ed *estate.Editor) error {
		ed.AddProperty()
		return nil
	})
}

// UpdateProperty overwrites one field of the property at index.
func (s *Service) UpdateProperty(_ context.Context, id string, index int, field, value string) (Snapshot, error) {
	return s.edit(id, "update_property", func(ed *estate.Editor) error {
		return ed.UpdateProperty(index, field, value)
	})
}

// RemoveProperty deletes the property at index and its assignment entry.
func (s *Service) RemoveProperty(_ context.Context, id string, index int) (Snapshot, error) {
	return s.edit(id, "remove_property", func(ed *estate.Editor) error {
		return ed.RemoveProperty(index)
	})
}

// SetAssignment records which heir receives the property.
func (s *Service) SetAssignment(_ context.Context, id, propertyID, heirID string) (Snapshot, error) {
	return s.edit(id, "set_assignment", func(ed *estate.Editor) error {
		return ed.SetAssignment(propertyID, heirID)
	})
}

// Advance moves the session from editing to previewing and returns the
// assembled document.
func (s *Service) Advance(ctx context.Context, id string) (document.Document, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return document.Document{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stage != StageEditing {
		return document.Document{}, dErrors.Newf(dErrors.CodeConflict, "session is %s, not editing", sess.stage)
	}
	if err := sess.record.CheckInvariants(); err != nil {
		s.logger.ErrorContext(ctx, "record failed invariant check",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", id,
			"error", err,
		)
		return document.Document{}, err
	}
	sess.stage = StagePreviewing
	s.metrics.DocumentsAssembled.Inc()
	return document.Assemble(sess.record, requestcontext.Now(ctx)), nil
}

// Back returns a previewing session to editing.
func (s *Service) Back(_ context.Context, id string) (Snapshot, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stage != StagePreviewing {
		return Snapshot{}, dErrors.Newf(dErrors.CodeConflict, "session is %s, not previewing", sess.stage)
	}
	sess.stage = StageEditing
	return sess.snapshotLocked(), nil
}

// Document re-assembles the document for a previewing session.
func (s *Service) Document(ctx context.Context, id string) (document.Document, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return document.Document{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.stage != StagePreviewing {
		return document.Document{}, dErrors.Newf(dErrors.CodeConflict, "session is %s, not previewing", sess.stage)
	}
	if err := sess.record.CheckInvariants(); err != nil {
		return document.Document{}, err
	}
	s.metrics.DocumentsAssembled.Inc()
	return document.Assemble(sess.record, requestcontext.Now(ctx)), nil
}
