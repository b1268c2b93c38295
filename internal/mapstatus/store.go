package mapstatus

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// RemoteFile is the two-operation contract of the version-controlled document
// host. GetFile returns the current content together with an opaque revision
// token; PutFile writes new content bound to the revision the caller read and
// fails with ErrConflict when the remote revision has advanced since.
type RemoteFile interface {
	GetFile(ctx context.Context, path string) (content []byte, revision string, err error)
	PutFile(ctx context.Context, path string, content []byte, expectedRevision string) (newRevision string, err error)
}

// FlagMirror receives the last successfully observed enabled value. It is the
// local fallback consulted when the remote store is unreachable.
type FlagMirror interface {
	SetEnabledMirror(ctx context.Context, enabled bool) error
}

// Partial describes a partial update of the status document. Nil fields are
// left untouched; a non-nil empty DisableUntil clears the scheduled re-enable.
type Partial struct {
	Enabled      *bool
	Message      *string
	Theme        *string
	DisableUntil *string
}

// Store reads and writes the map status document with optimistic concurrency.
// All document access in the process goes through this type so that the
// revision contract is enforced in one place.
type Store struct {
	remote RemoteFile
	path   string
	mirror FlagMirror
	logger *zap.Logger
}

// NewStore creates a store over the given remote file host. mirror may be nil.
func NewStore(remote RemoteFile, path string, mirror FlagMirror, logger *zap.Logger) *Store {
	return &Store{
		remote: remote,
		path:   path,
		mirror: mirror,
		logger: logger,
	}
}

// Fetch retrieves the current document and its revision token.
func (s *Store) Fetch(ctx context.Context) (Document, string, error) {
	content, revision, err := s.remote.GetFile(ctx, s.path)
	if err != nil {
		return Document{}, "", err
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return Document{}, "", err
	}

	s.mirrorEnabled(ctx, doc.Enabled)
	return doc, revision, nil
}

// Update merges partial over the current document and writes the result back
// bound to expectedRevision. It returns the updated document and its new
// revision. ErrConflict is returned when another writer won the race; the
// caller must re-fetch and retry or abort.
func (s *Store) Update(ctx context.Context, partial Partial, expectedRevision string) (Document, string, error) {
	content, revision, err := s.remote.GetFile(ctx, s.path)
	if err != nil {
		return Document{}, "", err
	}
	if revision != expectedRevision {
		return Document{}, "", fmt.Errorf("remote revision %s, expected %s: %w", revision, expectedRevision, ErrConflict)
	}

	var doc Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return Document{}, "", err
	}

	if partial.Enabled != nil {
		doc.Enabled = *partial.Enabled
	}
	if partial.Message != nil {
		doc.Message = *partial.Message
	}
	if partial.Theme != nil {
		doc.Theme = *partial.Theme
	}
	if partial.DisableUntil != nil {
		doc.DisableUntil = *partial.DisableUntil
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return Document{}, "", fmt.Errorf("encode map status document: %w", err)
	}

	newRevision, err := s.remote.PutFile(ctx, s.path, encoded, expectedRevision)
	if err != nil {
		return Document{}, "", err
	}

	s.logger.Info("Map status updated",
		zap.Bool("enabled", doc.Enabled),
		zap.String("revision", newRevision),
	)
	s.mirrorEnabled(ctx, doc.Enabled)
	return doc, newRevision, nil
}

// mirrorEnabled best-effort persists the last-known enabled value locally.
func (s *Store) mirrorEnabled(ctx context.Context, enabled bool) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SetEnabledMirror(ctx, enabled); err != nil {
		s.logger.Warn("Failed to mirror enabled flag", zap.Error(err))
	}
}
