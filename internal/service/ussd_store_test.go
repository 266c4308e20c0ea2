package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"heal-engine/internal/domain"
)

func TestMemoryUssdStore_PutGetDelete(t *testing.T) {
	store := NewMemoryUssdStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	if sess, err := store.Get(ctx, "unknown"); err != nil || sess != nil {
		t.Fatalf("expected nil for unknown id, got %v, %v", sess, err)
	}

	sess := &domain.UssdSession{ID: "s1", PhoneNumber: "+254700000001", Menu: domain.MenuMain}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("expected stored session, got %v, %v", got, err)
	}
	if got.Menu != domain.MenuMain {
		t.Fatalf("unexpected menu %q", got.Menu)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := store.Get(ctx, "s1"); got != nil {
		t.Fatalf("expected nil after delete")
	}
}

func TestMemoryUssdStore_IdleTTL(t *testing.T) {
	store := NewMemoryUssdStore(30 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	if err := store.Put(ctx, &domain.UssdSession{ID: "s1", Menu: domain.MenuChat}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if got, _ := store.Get(ctx, "s1"); got != nil {
		t.Fatalf("expected idle session to expire")
	}
}

// fakeRedisCommands mimics the narrow command set the store uses.
type fakeRedisCommands struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedisCommands() *fakeRedisCommands {
	return &fakeRedisCommands{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeRedisCommands) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (f *fakeRedisCommands) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	b, ok := value.([]byte)
	if !ok {
		cmd.SetErr(fmt.Errorf("unexpected value type %T", value))
		return cmd
	}
	f.values[key] = string(b)
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedisCommands) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			delete(f.ttls, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisUssdStoreRoundTrip(t *testing.T) {
	fake := newFakeRedisCommands()
	store := NewRedisUssdStore(fake, 10*time.Minute)
	ctx := context.Background()

	if sess, err := store.Get(ctx, "unknown"); err != nil || sess != nil {
		t.Fatalf("expected nil for unknown id, got %v, %v", sess, err)
	}

	sess := &domain.UssdSession{
		ID:          "s1",
		PhoneNumber: "+254700000001",
		Menu:        domain.MenuReportType,
		Language:    domain.LanguageKiswahili,
		Report:      domain.ReportData{Phone: "0712345678", Location: "Nairobi"},
	}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("expected stored session, got %v, %v", got, err)
	}
	if got.Menu != domain.MenuReportType || got.Language != domain.LanguageKiswahili || got.Report.Location != "Nairobi" {
		t.Fatalf("session did not survive the round trip: %+v", got)
	}
}

func TestRedisUssdStoreKeyAndTTL(t *testing.T) {
	fake := newFakeRedisCommands()
	store := NewRedisUssdStore(fake, 5*time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, &domain.UssdSession{ID: "s1", Menu: domain.MenuMain}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := fake.values["ussd:sess:s1"]; !ok {
		t.Fatalf("expected prefixed key, stored keys: %v", fake.values)
	}
	if ttl := fake.ttls["ussd:sess:s1"]; ttl != 5*time.Minute {
		t.Fatalf("expected 5m TTL on write, got %v", ttl)
	}
}

func TestRedisUssdStoreDelete(t *testing.T) {
	fake := newFakeRedisCommands()
	store := NewRedisUssdStore(fake, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, &domain.UssdSession{ID: "s1", Menu: domain.MenuChat}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess, _ := store.Get(ctx, "s1"); sess != nil {
		t.Fatalf("expected nil after delete, got %+v", sess)
	}
	if len(fake.values) != 0 {
		t.Fatalf("expected backing map emptied, got %v", fake.values)
	}
}
