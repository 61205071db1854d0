package middleware

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quillhealth/quill/internal/cache"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
	"go.uber.org/zap"
)

var errRemoteDown = errors.New("backend unreachable")

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	store, err := cache.New(cache.Config{Database: db, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("unexpected cache error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close() //nolint:errcheck
		}
	})
	return store
}

func newTestStore(middleware ...state.Middleware) *state.Store {
	return state.NewStore(state.StoreConfig{
		Initial:    state.NewAppState(),
		Middleware: middleware,
	})
}

// waitFor polls until the condition holds; middleware report back from their
// own goroutines, so observable effects are eventually consistent.
func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

type savedRemoteLog struct {
	log     journal.Loggable
	ownerID string
}

type remoteSearchCall struct {
	category journal.Category
	query    string
	ownerID  string
}

// fakeRemote is an in-memory remote.Store with per-operation failure switches
// and call recording.
type fakeRemote struct {
	mu sync.Mutex

	getUserErr  error
	saveUserErr error
	findUserErr error
	saveLogErr  error
	searchErr   error
	createErr   error

	users          map[string]journal.User
	usersByAccount map[string]journal.User
	catalog        []journal.LogSearchable

	savedUsers   []journal.User
	savedLogs    []savedRemoteLog
	searches     []remoteSearchCall
	createdItems []journal.LogSearchable
	nextItem     int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		users:          make(map[string]journal.User),
		usersByAccount: make(map[string]journal.User),
	}
}

func (f *fakeRemote) GetUser(_ context.Context, id string) (journal.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return journal.User{}, f.getUserErr
	}
	user, ok := f.users[id]
	if !ok {
		return journal.User{}, remote.ErrNotFound
	}
	return user, nil
}

func (f *fakeRemote) SaveUser(_ context.Context, user journal.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveUserErr != nil {
		return f.saveUserErr
	}
	f.users[user.ID] = user
	f.savedUsers = append(f.savedUsers, user)
	return nil
}

func (f *fakeRemote) FindUserByLinkedAccount(_ context.Context, accountID string) (journal.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findUserErr != nil {
		return journal.User{}, f.findUserErr
	}
	user, ok := f.usersByAccount[accountID]
	if !ok {
		return journal.User{}, remote.ErrNotFound
	}
	return user, nil
}

func (f *fakeRemote) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeRemote) SaveLog(_ context.Context, log journal.Loggable, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveLogErr != nil {
		return f.saveLogErr
	}
	f.savedLogs = append(f.savedLogs, savedRemoteLog{log: log, ownerID: ownerID})
	return nil
}

func (f *fakeRemote) SearchCatalog(_ context.Context, category journal.Category, query, ownerID string) ([]journal.LogSearchable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.searches = append(f.searches, remoteSearchCall{category: category, query: query, ownerID: ownerID})
	matched := make([]journal.LogSearchable, 0, len(f.catalog))
	for _, item := range f.catalog {
		if item.ParentCategory == category && item.VisibleTo(ownerID) {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (f *fakeRemote) CreateCatalogItem(_ context.Context, category journal.Category, name, ownerID string) (journal.LogSearchable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return journal.LogSearchable{}, f.createErr
	}
	f.nextItem++
	item := journal.LogSearchable{
		ID:             fmt.Sprintf("created-%d", f.nextItem),
		Name:           name,
		ParentCategory: category,
		CreatedBy:      ownerID,
	}
	f.catalog = append(f.catalog, item)
	f.createdItems = append(f.createdItems, item)
	return item, nil
}

func (f *fakeRemote) savedLogCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.savedLogs)
}

func (f *fakeRemote) searchCalls() []remoteSearchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteSearchCall(nil), f.searches...)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []journal.LogReminder
	cancelled []string
}

func (s *fakeScheduler) Schedule(_ context.Context, reminder journal.LogReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, reminder)
	return nil
}

func (s *fakeScheduler) Cancel(_ context.Context, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, reminderID)
	return nil
}

func (s *fakeScheduler) scheduledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.scheduled))
	for _, reminder := range s.scheduled {
		ids = append(ids, reminder.ID)
	}
	return ids
}

func (s *fakeScheduler) cancelledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancelled...)
}

// sequenceIDs hands out deterministic identifiers.
type sequenceIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (p *sequenceIDs) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("%s-%d", p.prefix, p.next), nil
}

func fixedClock(instant time.Time) func() time.Time {
	return func() time.Time { return instant }
}

func testNote(id, title string, createdAt time.Time) journal.Loggable {
	return journal.Loggable{
		ID:          id,
		Title:       title,
		Category:    journal.CategoryNote,
		DateCreated: createdAt,
	}
}
