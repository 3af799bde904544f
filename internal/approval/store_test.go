package approval

import (
	"errors"
	"sync"
	"testing"
	"time"

	"longbox/internal/services"
	"longbox/internal/testsupport"
)

func newTestSession(id string) *Session {
	return &Session{
		ID:           id,
		FileIDs:      []string{"a", "b"},
		Status:       StatusSeriesReview,
		SeriesGroups: []SeriesGroup{{ID: "g-1", FileIDs: []string{"a", "b"}, Status: GroupPending}},
		files:        map[string]File{"a": {ID: "a"}, "b": {ID: "b"}},
	}
}

func TestMemoryStoreCreateStampsTimestamps(t *testing.T) {
	clock := testsupport.NewClock()
	store := NewMemoryStore(30*time.Minute, clock.Now)
	session := newTestSession("s1")
	if err := store.Create(session); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !session.CreatedAt.Equal(clock.Now()) || !session.ExpiresAt.Equal(clock.Now().Add(30*time.Minute)) {
		t.Fatalf("timestamps = %v / %v", session.CreatedAt, session.ExpiresAt)
	}
	if err := store.Create(newTestSession("s1")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("duplicate create err = %v", err)
	}
	if err := store.Create(&Session{}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestMemoryStoreUpdateCommitsOnlyOnSuccess(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	if err := store.Create(newTestSession("s1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	boom := errors.New("boom")
	_, err := store.Update("s1", func(s *Session) error {
		s.CurrentSeriesIndex = 5
		s.SeriesGroups[0].FileIDs = nil
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	got, _ := store.Get("s1")
	if got.CurrentSeriesIndex != 0 || len(got.SeriesGroups[0].FileIDs) != 2 {
		t.Fatalf("failed update leaked: %+v", got)
	}

	updated, err := store.Update("s1", func(s *Session) error {
		s.CurrentSeriesIndex = 1
		return nil
	})
	if err != nil || updated.CurrentSeriesIndex != 1 {
		t.Fatalf("Update = %+v, %v", updated, err)
	}
	if _, err := store.Update("missing", func(*Session) error { return nil }); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestMemoryStoreSerializesWriters(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	if err := store.Create(newTestSession("s1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update("s1", func(s *Session) error {
				s.CurrentSeriesIndex++
				return nil
			})
		}()
	}
	wg.Wait()
	got, _ := store.Get("s1")
	if got.CurrentSeriesIndex != writers {
		t.Fatalf("index = %d, want %d", got.CurrentSeriesIndex, writers)
	}
}

func TestMemoryStoreSweepSkipsApplying(t *testing.T) {
	clock := testsupport.NewClock()
	store := NewMemoryStore(30*time.Minute, clock.Now)
	idle := newTestSession("idle")
	applying := newTestSession("applying")
	applying.Status = StatusApplying
	fresh := newTestSession("fresh")
	for _, s := range []*Session{idle, applying} {
		if err := store.Create(s); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	clock.Advance(25 * time.Minute)
	if err := store.Create(fresh); err != nil {
		t.Fatalf("Create: %v", err)
	}
	clock.Advance(10 * time.Minute)

	removed := store.Sweep(clock.Now())
	if len(removed) != 1 || removed[0] != "idle" {
		t.Fatalf("removed = %v", removed)
	}
	if _, ok := store.Get("applying"); !ok {
		t.Fatal("applying session was evicted")
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Fatal("fresh session was evicted")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	if err := store.Create(newTestSession("s1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete("s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete("s1"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("second Delete err = %v, want not found", err)
	}
	if _, ok := store.Get("s1"); ok {
		t.Fatal("deleted session still returned")
	}
}

func TestMemoryStoreDeleteRefusesApplying(t *testing.T) {
	store := NewMemoryStore(time.Hour, nil)
	session := newTestSession("s1")
	session.Status = StatusApplying
	if err := store.Create(session); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete("s1"); !errors.Is(err, services.ErrInvalidState) {
		t.Fatalf("Delete err = %v, want invalid state", err)
	}
	if _, ok := store.Get("s1"); !ok {
		t.Fatal("applying session was removed")
	}
}
