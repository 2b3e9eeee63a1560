package dedupe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/claraops/callsheet/internal/event"
)

func analyzedCall(id string, startMs int64) event.Call {
	return event.Call{
		"call_id":         id,
		"start_timestamp": float64(startMs),
		"collected_dynamic_variables": map[string]any{
			"customerName": "Jane",
		},
		"call_analysis": map[string]any{
			"custom_analysis_data": map[string]any{"emergencyType": "Sprinkler"},
		},
	}
}

func TestFingerprint_StableWithinMinuteBucket(t *testing.T) {
	a := Fingerprint(analyzedCall("abc", 120_000))
	b := Fingerprint(analyzedCall("abc", 150_000)) // same minute bucket
	if a != b {
		t.Fatalf("fingerprints differ within one bucket: %s vs %s", a, b)
	}

	c := Fingerprint(analyzedCall("abc", 180_000)) // next bucket
	if a == c {
		t.Fatal("fingerprints equal across buckets")
	}

	d := Fingerprint(analyzedCall("other", 120_000))
	if a == d {
		t.Fatal("fingerprints equal across call IDs")
	}
}

func TestFingerprint_TracksVariableContent(t *testing.T) {
	base := analyzedCall("abc", 0)
	changed := analyzedCall("abc", 0)
	changed["collected_dynamic_variables"] = map[string]any{"customerName": "Bob"}

	if Fingerprint(base) == Fingerprint(changed) {
		t.Fatal("fingerprint ignored variable content")
	}
}

func TestGuard_SecondDeliveryIsDuplicate(t *testing.T) {
	guard := NewGuard(NewMemoryStore())
	ctx := context.Background()
	call := analyzedCall("abc", time.Now().UnixMilli())

	if guard.IsDuplicate(ctx, call) {
		t.Fatal("first delivery flagged as duplicate")
	}
	if !guard.IsDuplicate(ctx, call) {
		t.Fatal("second delivery not flagged as duplicate")
	}
}

func TestGuard_DistinctCallsPass(t *testing.T) {
	guard := NewGuard(NewMemoryStore())
	ctx := context.Background()

	if guard.IsDuplicate(ctx, analyzedCall("a", 0)) {
		t.Fatal("fresh call a flagged")
	}
	if guard.IsDuplicate(ctx, analyzedCall("b", 0)) {
		t.Fatal("fresh call b flagged")
	}
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Seen(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}

func (failingStore) Record(context.Context, string, Meta) error {
	return errors.New("backend down")
}

func TestGuard_StoreFailureNeverBlocksProcessing(t *testing.T) {
	guard := NewGuard(failingStore{})
	call := analyzedCall("abc", 0)

	if guard.IsDuplicate(context.Background(), call) {
		t.Fatal("store failure must be treated as not-a-duplicate")
	}
	if guard.IsDuplicate(context.Background(), call) {
		t.Fatal("store failure must keep allowing processing")
	}
}

func TestMemoryStore_PrunesByAge(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Record(ctx, "old", Meta{CallID: "old", ProcessedAt: time.Now().Add(-25 * time.Hour)})
	_ = s.Record(ctx, "fresh", Meta{CallID: "fresh", ProcessedAt: time.Now()})

	if seen, _ := s.Seen(ctx, "old"); seen {
		t.Fatal("expired entry survived pruning")
	}
	if seen, _ := s.Seen(ctx, "fresh"); !seen {
		t.Fatal("fresh entry was pruned")
	}
}

func TestMemoryStore_PrunesByCountKeepingMostRecent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < MaxEntries+100; i++ {
		meta := Meta{
			CallID:      fmt.Sprintf("call-%d", i),
			ProcessedAt: now,
			Timestamp:   int64(i),
		}
		_ = s.Record(ctx, fmt.Sprintf("hash-%d", i), meta)
	}

	if got := s.Len(); got != MaxEntries {
		t.Fatalf("len = %d, want %d", got, MaxEntries)
	}
	// The newest entry by call timestamp must survive, the oldest not.
	if seen, _ := s.Seen(ctx, fmt.Sprintf("hash-%d", MaxEntries+99)); !seen {
		t.Fatal("most recent entry was pruned")
	}
	if seen, _ := s.Seen(ctx, "hash-0"); seen {
		t.Fatal("oldest entry survived the count cap")
	}
}
