// Package dedupe suppresses re-delivery of the same analyzed call. The
// platform retries webhook delivery, so each call is fingerprinted over
// its identity, its extracted-variable content, and a one-minute
// timestamp bucket; a second delivery inside the bucket is a duplicate.
package dedupe

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/claraops/callsheet/internal/event"
)

// Retention limits applied by stores on every write.
const (
	MaxAge     = 24 * time.Hour
	MaxEntries = 1000
)

// Meta is the metadata kept per fingerprint.
type Meta struct {
	CallID      string    `json:"call_id"`
	ProcessedAt time.Time `json:"processed_at"`
	// Timestamp is the call's epoch-millisecond start time, used for
	// retention ordering.
	Timestamp int64 `json:"timestamp"`
}

// Store is the fingerprint set. Implementations prune expired entries on
// Record. The in-memory store backs tests and single-instance
// deployments; the Postgres store backs production.
type Store interface {
	Seen(ctx context.Context, hash string) (bool, error)
	Record(ctx context.Context, hash string, meta Meta) error
}

// Guard checks deliveries against a Store.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// IsDuplicate reports whether the call was already processed, recording
// it when it was not. Storage failure never blocks processing: any store
// error is logged and treated as "not a duplicate".
func (g *Guard) IsDuplicate(ctx context.Context, call event.Call) bool {
	hash := Fingerprint(call)

	seen, err := g.store.Seen(ctx, hash)
	if err != nil {
		log.Printf("[dedupe] seen check failed, allowing call %s: %v", call.ID(), err)
		return false
	}
	if seen {
		log.Printf("[dedupe] duplicate fingerprint %s for call %s", hash, call.ID())
		return true
	}

	meta := Meta{
		CallID:      call.ID(),
		ProcessedAt: time.Now(),
		Timestamp:   call.StartTimestamp(),
	}
	if err := g.store.Record(ctx, hash, meta); err != nil {
		log.Printf("[dedupe] record failed for call %s: %v", call.ID(), err)
	}
	return false
}

// fingerprintContent fixes the hashed fields. The variable maps are
// stringified so the fingerprint tracks extracted content, and the start
// timestamp is bucketed to the minute so retried deliveries of the same
// analysis collapse even when minor fields differ.
type fingerprintContent struct {
	CallID          string `json:"call_id"`
	CollectedVars   string `json:"collected_vars"`
	CustomData      string `json:"custom_data"`
	TimestampMinute int64  `json:"timestamp_minute"`
}

// Fingerprint computes the stable content hash for a call record.
func Fingerprint(call event.Call) string {
	content := fingerprintContent{
		CallID:          call.ID(),
		CollectedVars:   canonical(call.CollectedVariables()),
		CustomData:      canonical(call.CustomAnalysisData()),
		TimestampMinute: call.StartTimestamp() / 60000,
	}
	// Field order is fixed by the struct; map values were canonicalized
	// above, so equal inputs always hash equal.
	b, _ := json.Marshal(content)
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// canonical renders a map deterministically (encoding/json sorts keys).
func canonical(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
