package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// memoryBackend is the shared namespace; memoryStore is one process's view
// of it. beforeAppend runs between the read and the write of an append so a
// test can interleave another process at the exact point a real race would.
type memoryBackend struct {
	mu     sync.Mutex
	lists  map[string][]string
	values map[string]string
	writes int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{lists: map[string][]string{}, values: map[string]string{}}
}

type memoryStore struct {
	backend      *memoryBackend
	beforeAppend func()
	readErr      error
	appendErr    error
	writeErr     error
}

var _ ports.SharedStore = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{backend: newMemoryBackend()}
}

func (s *memoryStore) view() *memoryStore {
	return &memoryStore{backend: s.backend}
}

func (s *memoryStore) ReadList(_ context.Context, key string) ([]string, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return append([]string{}, s.backend.lists[key]...), nil
}

func (s *memoryStore) AppendAndPersist(_ context.Context, key string, value string) error {
	if s.appendErr != nil {
		return s.appendErr
	}

	s.backend.mu.Lock()
	snapshot := append([]string{}, s.backend.lists[key]...)
	s.backend.mu.Unlock()

	if hook := s.beforeAppend; hook != nil {
		s.beforeAppend = nil
		hook()
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.lists[key] = append(snapshot, value)
	s.backend.writes++
	return nil
}

func (s *memoryStore) ReplaceList(_ context.Context, key string, values []string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if len(values) == 0 {
		delete(s.backend.lists, key)
	} else {
		s.backend.lists[key] = append([]string{}, values...)
	}
	s.backend.writes++
	return nil
}

func (s *memoryStore) ReadValue(_ context.Context, key string) (string, bool, error) {
	if s.readErr != nil {
		return "", false, s.readErr
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	value, ok := s.backend.values[key]
	return value, ok, nil
}

func (s *memoryStore) WriteValues(_ context.Context, values map[string]string) error {
	if s.writeErr != nil {
		return s.writeErr
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	for key, value := range values {
		s.backend.values[key] = value
	}
	s.backend.writes++
	return nil
}

func (s *memoryStore) DeleteKeys(_ context.Context, keys ...string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	for _, key := range keys {
		delete(s.backend.values, key)
		delete(s.backend.lists, key)
	}
	s.backend.writes++
	return nil
}

func (s *memoryStore) list(key string) []string {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return append([]string{}, s.backend.lists[key]...)
}

func (s *memoryStore) setList(key string, values ...string) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.lists[key] = values
}

func (s *memoryStore) writeCount() int {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return s.backend.writes
}

type fakeHandle struct {
	id         domain.PresentationID
	dismissErr error

	mu        sync.Mutex
	dismissed int
}

func (h *fakeHandle) ID() domain.PresentationID {
	return h.id
}

func (h *fakeHandle) Dismiss(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dismissErr != nil {
		return h.dismissErr
	}
	h.dismissed++
	return nil
}

func (h *fakeHandle) dismissCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dismissed
}

type identifiedHandle struct {
	fakeHandle
	activityID domain.ActivityID
}

func (h *identifiedHandle) ActivityID() domain.ActivityID {
	return h.activityID
}

// fakeRegistry keeps dismissed handles listed, like a snapshot taken by a
// process that has not yet observed the dismissal.
type fakeRegistry struct {
	handles []ports.PresentationHandle
	err     error
}

func (r *fakeRegistry) LiveHandles(context.Context) ([]ports.PresentationHandle, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.handles, nil
}

type fakeLauncher struct {
	next   []domain.PresentationID
	err    error
	called []domain.ActivityID
}

func (l *fakeLauncher) Launch(_ context.Context, id domain.ActivityID) (domain.PresentationID, error) {
	if l.err != nil {
		return "", l.err
	}
	l.called = append(l.called, id)
	next := l.next[0]
	l.next = l.next[1:]
	return next, nil
}

type inMemorySessionRepo struct {
	sessions []domain.Session
	getErr   error
	saveErr  error
}

func (r *inMemorySessionRepo) GetByID(_ context.Context, id domain.ActivityID) (domain.Session, error) {
	if r.getErr != nil {
		return domain.Session{}, r.getErr
	}
	for _, session := range r.sessions {
		if session.ActivityID == id {
			return session, nil
		}
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (r *inMemorySessionRepo) List(context.Context) ([]domain.Session, error) {
	return append([]domain.Session{}, r.sessions...), nil
}

func (r *inMemorySessionRepo) Save(_ context.Context, session domain.Session) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	for i := range r.sessions {
		if r.sessions[i].ActivityID == session.ActivityID {
			r.sessions[i] = session
			return nil
		}
	}
	r.sessions = append(r.sessions, session)
	return nil
}

var errStoreDown = errors.New("store down")

func publishAttributes(store ports.SharedStore, presentationID domain.PresentationID, activityID domain.ActivityID) {
	err := NewPresentationDirectory(store).Publish(context.Background(), domain.SessionAttributes{
		PresentationID:          presentationID,
		ActivityID:              activityID,
		ActivityName:            "Activity " + string(activityID),
		SessionStartEpochMillis: 1_760_000_000_000,
		Theme:                   domain.DefaultTheme(),
	})
	if err != nil {
		panic(err)
	}
}
