package storage

import (
	"context"

	"github.com/Metaboom4304/genesis-war-bot-sub000/internal/models"
)

// Storage defines the interface for local persistence: the user registry and
// the last-known enabled flag mirror.
//
// Implementations must serialize mutations so that concurrent broadcasts
// cannot interleave their registry writes and lose each other's removals.
type Storage interface {
	// User registry operations
	AddUser(ctx context.Context, user models.UserRecord) error
	HasUser(ctx context.Context, id string) (bool, error)
	ListUsers(ctx context.Context) ([]models.UserRecord, error)

	// RemoveUsers deletes the given ids in a single transaction. Unknown ids
	// are ignored.
	RemoveUsers(ctx context.Context, ids []string) error

	// Enabled flag mirror: the locally persisted copy of the remote enabled
	// field, used as a fallback read when the remote store is unreachable.
	// EnabledMirror reports ok=false when no value has ever been written.
	SetEnabledMirror(ctx context.Context, enabled bool) error
	EnabledMirror(ctx context.Context) (enabled bool, ok bool, err error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
