package mapstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRemote is an in-memory RemoteFile with revision tracking.
type fakeRemote struct {
	mu       sync.Mutex
	content  []byte
	revision int
	missing  bool
	getErr   error
	putErr   error
}

func (f *fakeRemote) rev() string {
	return fmt.Sprintf("rev-%d", f.revision)
}

func (f *fakeRemote) GetFile(ctx context.Context, path string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, "", f.getErr
	}
	if f.missing {
		return nil, "", ErrNotFound
	}
	return append([]byte(nil), f.content...), f.rev(), nil
}

func (f *fakeRemote) PutFile(ctx context.Context, path string, content []byte, expectedRevision string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	if expectedRevision != f.rev() {
		return "", ErrConflict
	}
	f.content = append([]byte(nil), content...)
	f.revision++
	f.missing = false
	return f.rev(), nil
}

type fakeMirror struct {
	mu     sync.Mutex
	values []bool
}

func (m *fakeMirror) SetEnabledMirror(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, enabled)
	return nil
}

func newTestStore(remote *fakeRemote, mirror FlagMirror) *Store {
	return NewStore(remote, "map-status.json", mirror, zap.NewNop())
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestStore_FetchAndUpdate(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{content: []byte(`{"enabled":true,"message":"up","theme":"auto","disableUntil":null}`)}
	mirror := &fakeMirror{}
	store := newTestStore(remote, mirror)

	doc, rev, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.True(t, doc.Enabled)
	assert.Equal(t, "rev-0", rev)

	updated, newRev, err := store.Update(ctx, Partial{
		Enabled: boolPtr(false),
		Message: strPtr("maintenance"),
	}, rev)
	require.NoError(t, err)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "maintenance", updated.Message)
	assert.Equal(t, "auto", updated.Theme, "untouched fields keep their value")
	assert.NotEqual(t, rev, newRev, "revision must advance on every write")

	// Read back: field-for-field equality apart from the revision token.
	fetched, rev2, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated, fetched)
	assert.Equal(t, newRev, rev2)

	// Mirror saw every successfully observed value.
	assert.Equal(t, []bool{true, false, false}, mirror.values)
}

func TestStore_UpdateStaleRevisionConflicts(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{content: []byte(`{"enabled":true,"message":"up"}`)}
	store := newTestStore(remote, nil)

	_, rev, err := store.Fetch(ctx)
	require.NoError(t, err)

	// First writer wins.
	_, _, err = store.Update(ctx, Partial{Message: strPtr("writer one")}, rev)
	require.NoError(t, err)

	// Second writer holds the stale token and must lose.
	_, _, err = store.Update(ctx, Partial{Message: strPtr("writer two")}, rev)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	// The winning write was not clobbered.
	doc, _, err := store.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "writer one", doc.Message)
}

func TestStore_OnlyMatchingRevisionSucceeds(t *testing.T) {
	// For a sequence of updates all holding the same token, exactly one wins.
	ctx := context.Background()
	remote := &fakeRemote{content: []byte(`{"enabled":true,"message":"up"}`)}
	store := newTestStore(remote, nil)

	_, rev, err := store.Fetch(ctx)
	require.NoError(t, err)

	wins := 0
	for i := 0; i < 5; i++ {
		_, _, err := store.Update(ctx, Partial{Message: strPtr(fmt.Sprintf("attempt %d", i))}, rev)
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestStore_FetchNotFound(t *testing.T) {
	remote := &fakeRemote{missing: true}
	store := newTestStore(remote, nil)

	_, _, err := store.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FetchInvalidFormat(t *testing.T) {
	remote := &fakeRemote{content: []byte(`{"enabled":"nope"}`)}
	store := newTestStore(remote, nil)

	_, _, err := store.Fetch(context.Background())
	var invalid *InvalidFormatError
	require.Error(t, err)
	assert.True(t, errors.As(err, &invalid))
}

func TestStore_UpdateNetworkErrorPropagates(t *testing.T) {
	netErr := &NetworkError{Op: "get", Err: errors.New("connection refused")}
	remote := &fakeRemote{getErr: netErr}
	store := newTestStore(remote, nil)

	_, _, err := store.Update(context.Background(), Partial{Enabled: boolPtr(false)}, "rev-0")
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestStore_UpdatePreservesUnknownFields(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{content: []byte(`{"enabled":true,"message":"up","legacy":{"k":1}}`)}
	store := newTestStore(remote, nil)

	_, rev, err := store.Fetch(ctx)
	require.NoError(t, err)

	_, _, err = store.Update(ctx, Partial{Enabled: boolPtr(false)}, rev)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(remote.content, &raw))
	assert.JSONEq(t, `{"k":1}`, string(raw["legacy"]))
}
