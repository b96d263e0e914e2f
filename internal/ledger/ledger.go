// Package ledger keeps a per-identity tally of estimated token spend and
// decides whether a client may send another chat request.
package ledger

import (
	"context"
	"fmt"
	"math"
	"time"
	"unicode/utf16"
)

const (
	// DefaultLimit is the spend cap per identity, in dollars.
	DefaultLimit = 1.00

	// DefaultInputTokensPerDollar prices input at $3 per 1M tokens.
	DefaultInputTokensPerDollar = 1_000_000.0 / 3

	// DefaultOutputTokensPerDollar prices output at $15 per 1M tokens.
	DefaultOutputTokensPerDollar = 1_000_000.0 / 15

	// DefaultWindow is how long a record lives before it is zeroed on next access.
	DefaultWindow = 24 * time.Hour
)

// Config holds the spend cap and the pricing used to derive cost from tokens.
type Config struct {
	Limit                 float64
	InputTokensPerDollar  float64
	OutputTokensPerDollar float64
	Window                time.Duration
}

// DefaultConfig returns the stock pricing and a $1 cap over 24 hours.
func DefaultConfig() Config {
	return Config{
		Limit:                 DefaultLimit,
		InputTokensPerDollar:  DefaultInputTokensPerDollar,
		OutputTokensPerDollar: DefaultOutputTokensPerDollar,
		Window:                DefaultWindow,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Limit <= 0 {
		c.Limit = d.Limit
	}
	if c.InputTokensPerDollar <= 0 {
		c.InputTokensPerDollar = d.InputTokensPerDollar
	}
	if c.OutputTokensPerDollar <= 0 {
		c.OutputTokensPerDollar = d.OutputTokensPerDollar
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	return c
}

// Decision is the outcome of CheckLimit. Usage is nil when the identity has
// no record yet.
type Decision struct {
	Allowed bool    `json:"allowed"`
	Usage   *Record `json:"usage"`
}

// Summary is the spend overview shown to the client.
type Summary struct {
	Used         float64 `json:"used"`
	Remaining    float64 `json:"remaining"`
	Percentage   float64 `json:"percentage"`
	RequestCount int64   `json:"requestCount"`
}

// Ledger applies the spend cap on top of a Store.
type Ledger struct {
	store    Store
	cfg      Config
	timeFunc func() time.Time // for testing
}

// New creates a Ledger over the given store. Zero fields in cfg fall back to
// the defaults.
func New(store Store, cfg Config) *Ledger {
	return &Ledger{
		store:    store,
		cfg:      cfg.withDefaults(),
		timeFunc: time.Now,
	}
}

// Config returns the effective configuration.
func (l *Ledger) Config() Config {
	return l.cfg
}

// Limit returns the spend cap in dollars.
func (l *Ledger) Limit() float64 {
	return l.cfg.Limit
}

// CalculateCost prices a single request. Input and output are billed at
// different rates so the two counts are never summed before pricing.
func (l *Ledger) CalculateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/l.cfg.InputTokensPerDollar +
		float64(outputTokens)/l.cfg.OutputTokensPerDollar
}

// CheckLimit reports whether identity may send another request. When the
// record is older than the window it is zeroed and written back in the same
// store transaction; otherwise nothing is written.
func (l *Ledger) CheckLimit(ctx context.Context, identity string) (Decision, error) {
	now := l.timeFunc()

	rec, err := l.store.Update(ctx, identity, func(current *Record) (*Record, error) {
		if current == nil {
			return nil, nil
		}
		if now.Sub(current.LastUsed) <= l.cfg.Window {
			return nil, nil
		}
		reset := current.Clone()
		reset.Identity = identity
		reset.TotalTokens = 0
		reset.EstimatedCost = 0
		reset.RequestCount = 0
		reset.LastUsed = now
		reset.Blocked = false
		return reset, nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check usage limit: %w", err)
	}

	if rec == nil {
		return Decision{Allowed: true}, nil
	}

	blocked := rec.Blocked || rec.EstimatedCost >= l.cfg.Limit
	return Decision{Allowed: !blocked, Usage: rec}, nil
}

// RecordUsage adds one completed request to identity's totals.
func (l *Ledger) RecordUsage(ctx context.Context, identity string, inputTokens, outputTokens int) (*Record, error) {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}

	now := l.timeFunc()
	additionalCost := l.CalculateCost(inputTokens, outputTokens)

	rec, err := l.store.Update(ctx, identity, func(current *Record) (*Record, error) {
		next := &Record{Identity: identity}
		if current != nil {
			next = current.Clone()
			next.Identity = identity
		}
		next.TotalTokens += int64(inputTokens) + int64(outputTokens)
		next.EstimatedCost += additionalCost
		next.RequestCount++
		next.LastUsed = now
		next.Blocked = next.EstimatedCost >= l.cfg.Limit
		return next, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	return rec, nil
}

// Summarize reports spend against the cap. It never resets a stale record.
func (l *Ledger) Summarize(ctx context.Context, identity string) (Summary, error) {
	rec, err := l.store.Get(ctx, identity)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load usage: %w", err)
	}
	return l.summarize(rec), nil
}

func (l *Ledger) summarize(rec *Record) Summary {
	if rec == nil {
		return Summary{Remaining: l.cfg.Limit}
	}
	used := rec.EstimatedCost
	return Summary{
		Used:         used,
		Remaining:    math.Max(0, l.cfg.Limit-used),
		Percentage:   math.Min(100, used/l.cfg.Limit*100),
		RequestCount: rec.RequestCount,
	}
}

// Reset zeroes identity's record regardless of the window.
func (l *Ledger) Reset(ctx context.Context, identity string) (*Record, error) {
	rec := &Record{Identity: identity, LastUsed: l.timeFunc()}
	if err := l.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to reset usage: %w", err)
	}
	return rec, nil
}

// Entry pairs a stored record with its summary.
type Entry struct {
	Record  Record  `json:"record"`
	Summary Summary `json:"summary"`
}

// List returns every stored record with its summary.
func (l *Ledger) List(ctx context.Context) ([]Entry, error) {
	records, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	entries := make([]Entry, 0, len(records))
	for i := range records {
		entries = append(entries, Entry{Record: records[i], Summary: l.summarize(&records[i])})
	}
	return entries, nil
}

// EstimateTokens approximates a token count at four characters per token,
// for providers that do not report usage. Characters are UTF-16 code units,
// the same unit browsers report for string length.
func EstimateTokens(text string) int {
	units := 0
	for _, r := range text {
		units += utf16.RuneLen(r)
	}
	return (units + 3) / 4
}
