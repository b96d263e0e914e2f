package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion tags every persisted record or blob. Payloads carrying any
// other version are treated as corrupt.
const SchemaVersion = 1

// ErrCorrupt marks persisted data that could not be decoded.
var ErrCorrupt = errors.New("corrupt ledger data")

// Record is the running usage of one identity since its last reset.
type Record struct {
	Identity      string    `json:"identity"`
	TotalTokens   int64     `json:"totalTokens"`
	EstimatedCost float64   `json:"estimatedCost"`
	RequestCount  int64     `json:"requestCount"`
	LastUsed      time.Time `json:"lastUsed"`
	Blocked       bool      `json:"blocked"`
}

// Clone returns a copy of r.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// UpdateFunc computes the next record from the current one. current is nil
// when nothing is stored (or the stored value is corrupt). Returning a nil
// record leaves the store untouched.
type UpdateFunc func(current *Record) (*Record, error)

// Store persists records keyed by identity.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the record for identity, or nil, nil if none exists.
	Get(ctx context.Context, identity string) (*Record, error)

	// Put overwrites the record for rec.Identity.
	Put(ctx context.Context, rec *Record) error

	// Update runs fn as one atomic read-modify-write. It returns the record
	// written, or the unchanged current record when fn returned nil.
	Update(ctx context.Context, identity string, fn UpdateFunc) (*Record, error)

	// List returns every stored record.
	List(ctx context.Context) ([]Record, error)

	// Close releases any resources held by the store.
	Close() error
}

// envelope wraps a single record for stores that keep one value per identity.
type envelope struct {
	Version int     `json:"version"`
	Record  *Record `json:"record"`
}

// EncodeRecord serializes rec with the schema version.
func EncodeRecord(rec *Record) ([]byte, error) {
	data, err := json.Marshal(envelope{Version: SchemaVersion, Record: rec})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a value written by EncodeRecord. Anything else yields
// an error wrapping ErrCorrupt.
func DecodeRecord(data []byte) (*Record, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrCorrupt, env.Version)
	}
	if env.Record == nil {
		return nil, fmt.Errorf("%w: missing record", ErrCorrupt)
	}
	return env.Record, nil
}
