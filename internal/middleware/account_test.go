package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillhealth/quill/internal/cache"
	"github.com/quillhealth/quill/internal/journal"
	"github.com/quillhealth/quill/internal/remote"
	"github.com/quillhealth/quill/internal/state"
)

func newAccountHarness(t *testing.T, remoteStore *fakeRemote, account journal.ExternalAccountRef) (*state.Store, *cache.Cache) {
	t.Helper()
	localCache := newTestCache(t)
	mw, err := NewAccountMiddleware(AccountConfig{
		Cache:  localCache,
		Remote: remoteStore,
		Auth:   remote.StaticAuthProvider{Account: account},
		IDs:    &sequenceIDs{prefix: "user"},
		Clock:  fixedClock(time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("unexpected middleware error: %v", err)
	}
	return newTestStore(mw), localCache
}

func TestAppLaunchedCreatesUserOnFirstLaunch(t *testing.T) {
	remoteStore := newFakeRemote()
	store, localCache := newAccountHarness(t, remoteStore, journal.ExternalAccountRef{AccountID: "acct-1"})

	store.Send(state.AppLaunched{})
	waitFor(t, func() bool { return store.State().Global.ActiveUser != nil })

	active := store.State().Global.ActiveUser
	if active.ID != "user-1" {
		t.Fatalf("expected the generated user id, got %q", active.ID)
	}

	stored, err := localCache.ActiveUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if stored.ID != active.ID {
		t.Fatalf("the new user must be durable locally, got %q", stored.ID)
	}
	waitFor(t, func() bool {
		remoteStore.mu.Lock()
		defer remoteStore.mu.Unlock()
		return len(remoteStore.savedUsers) == 1
	})
}

func TestAppLaunchedKeepsLocalUserWhenRemoteFails(t *testing.T) {
	remoteStore := newFakeRemote()
	remoteStore.getUserErr = errors.New("backend unreachable")
	store, localCache := newAccountHarness(t, remoteStore, journal.ExternalAccountRef{AccountID: "acct-1"})

	existing := journal.User{ID: "user-local", DateCreated: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	if err := localCache.SaveActiveUser(context.Background(), existing); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}

	store.Send(state.AppLaunched{})
	waitFor(t, func() bool { return store.State().Global.ActiveUser != nil })

	if store.State().Global.ActiveUser.ID != "user-local" {
		t.Fatalf("the local record must win when the remote lookup fails")
	}
	if store.State().Global.UserLoadFailed {
		t.Fatalf("a remote failure must not fail the session")
	}
}

func TestAppLaunchedAdoptsRemoteUserRecord(t *testing.T) {
	remoteStore := newFakeRemote()
	linked := journal.User{
		ID:            "user-local",
		DateCreated:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		LinkedAccount: &journal.ExternalAccountRef{AccountID: "acct-1"},
	}
	remoteStore.users["user-local"] = linked
	store, localCache := newAccountHarness(t, remoteStore, journal.ExternalAccountRef{AccountID: "acct-1"})

	if err := localCache.SaveActiveUser(context.Background(), journal.User{ID: "user-local", DateCreated: linked.DateCreated}); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}

	store.Send(state.AppLaunched{})
	waitFor(t, func() bool {
		active := store.State().Global.ActiveUser
		return active != nil && active.Linked()
	})
}

func TestLinkAccountAttachesSignInTuple(t *testing.T) {
	remoteStore := newFakeRemote()
	account := journal.ExternalAccountRef{AccountID: "acct-1", DisplayName: "A", Email: "a@example.com"}
	store, localCache := newAccountHarness(t, remoteStore, account)

	user := journal.User{ID: "user-1", DateCreated: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	if err := localCache.SaveActiveUser(context.Background(), user); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}
	store.Send(state.ActiveUserLoaded{User: user})
	store.Send(state.LinkAccountPressed{})

	waitFor(t, func() bool {
		tree := store.State()
		return !tree.Settings.Linking && tree.Global.ActiveUser != nil && tree.Global.ActiveUser.Linked()
	})

	stored, err := localCache.ActiveUser(context.Background())
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if stored.LinkedAccount == nil || stored.LinkedAccount.AccountID != "acct-1" {
		t.Fatalf("the link must be durable locally: %#v", stored.LinkedAccount)
	}
}

func TestRestoreDiscardsLocalHistoryAndAdoptsBackup(t *testing.T) {
	remoteStore := newFakeRemote()
	account := journal.ExternalAccountRef{AccountID: "acct-1"}
	backup := journal.User{
		ID:            "user-b",
		DateCreated:   time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		LinkedAccount: &account,
	}
	remoteStore.usersByAccount["acct-1"] = backup
	store, localCache := newAccountHarness(t, remoteStore, account)

	ctx := context.Background()
	userA := journal.User{ID: "user-a", DateCreated: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	if err := localCache.SaveActiveUser(ctx, userA); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}
	base := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)
	for _, entry := range []journal.Loggable{
		testNote("note-1", "one", base),
		testNote("note-2", "two", base.Add(time.Hour)),
		testNote("note-3", "three", base.Add(2*time.Hour)),
	} {
		if err := localCache.SaveLog(ctx, entry); err != nil {
			t.Fatalf("unexpected seed error: %v", err)
		}
		store.Send(state.LogInserted{Log: entry})
	}

	store.Send(state.RestorePressed{})
	waitFor(t, func() bool {
		tree := store.State()
		return !tree.Settings.Restoring && tree.Global.ActiveUser != nil && tree.Global.ActiveUser.ID == "user-b"
	})

	tree := store.State()
	if len(tree.GlobalLogs.Logs) != 0 {
		t.Fatalf("restore must discard the in-memory collection, got %d logs", len(tree.GlobalLogs.Logs))
	}
	logs, err := localCache.QueryLogs(ctx, cache.QueryFilter{})
	if err != nil {
		t.Fatalf("unexpected cache query error: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("restore must wipe the cache, got %d logs", len(logs))
	}
	stored, err := localCache.ActiveUser(ctx)
	if err != nil {
		t.Fatalf("unexpected lookup error: %v", err)
	}
	if stored.ID != "user-b" {
		t.Fatalf("the restored user must be the stored active user, got %q", stored.ID)
	}
}

func TestRestoreFailsWithoutMatchingBackup(t *testing.T) {
	remoteStore := newFakeRemote()
	store, localCache := newAccountHarness(t, remoteStore, journal.ExternalAccountRef{AccountID: "acct-unknown"})

	ctx := context.Background()
	if err := localCache.SaveLog(ctx, testNote("note-1", "kept", time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("unexpected seed error: %v", err)
	}

	store.Send(state.RestorePressed{})
	waitFor(t, func() bool {
		tree := store.State()
		return !tree.Settings.Restoring && tree.Settings.ErrorShown
	})

	// A failed restore must leave local data untouched.
	logs, err := localCache.QueryLogs(ctx, cache.QueryFilter{})
	if err != nil {
		t.Fatalf("unexpected cache query error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("a failed restore must not wipe the cache, got %d logs", len(logs))
	}
}
