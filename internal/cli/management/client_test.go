package management

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/scoutchat/internal/database/models"
	"github.com/andrew/scoutchat/internal/ledger"
)

type fakeHistory struct {
	deleted []string
}

func (h *fakeHistory) GetUsageStats(_ context.Context, identity string, _, _ *time.Time) (*models.UsageStats, error) {
	return &models.UsageStats{TotalRequests: 4, ByOutcome: map[string]int{models.OutcomeOK: 4}}, nil
}

func (h *fakeHistory) DeleteUsageEventsByIdentity(_ context.Context, identity string) error {
	h.deleted = append(h.deleted, identity)
	return nil
}

func seededLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New(ledger.NewMemoryStore(), ledger.Config{})
	_, err := l.RecordUsage(context.Background(), "198.51.100.4", 1000, 500)
	require.NoError(t, err)
	_, err = l.RecordUsage(context.Background(), "198.51.100.5", 0, 80000)
	require.NoError(t, err)
	return l
}

func TestListJSON(t *testing.T) {
	var out bytes.Buffer
	m := NewUsageManager(seededLedger(t), nil, &out)

	require.NoError(t, m.ListJSON(context.Background()))

	var got ListOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, 1.0, got.Limit)
	require.Len(t, got.Identities, 2)

	byID := map[string]IdentityOutput{}
	for _, id := range got.Identities {
		byID[id.Identity] = id
	}
	assert.True(t, byID["198.51.100.5"].Blocked)
	assert.Equal(t, 100.0, byID["198.51.100.5"].Percentage)
	assert.False(t, byID["198.51.100.4"].Blocked)
	assert.Equal(t, int64(1500), byID["198.51.100.4"].TotalTokens)
}

func TestSummaryJSON(t *testing.T) {
	var out bytes.Buffer
	m := NewUsageManager(seededLedger(t), &fakeHistory{}, &out)

	require.NoError(t, m.SummaryJSON(context.Background(), "198.51.100.4"))

	var got SummaryOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.True(t, got.Success)
	require.NotNil(t, got.Summary)
	assert.InDelta(t, 0.0105, got.Summary.Used, 1e-12)
	require.NotNil(t, got.History)
	assert.Equal(t, 4, got.History.TotalRequests)
}

func TestResetJSON(t *testing.T) {
	var out bytes.Buffer
	l := seededLedger(t)
	m := NewUsageManager(l, nil, &out)

	require.NoError(t, m.ResetJSON(context.Background(), "198.51.100.5"))

	decision, err := l.CheckLimit(context.Background(), "198.51.100.5")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	out.Reset()
	assert.Error(t, m.ResetJSON(context.Background(), " "))
	var got ResetOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.False(t, got.Success)
	assert.Equal(t, "identity is required", got.Error)
}

func TestPrintEntries(t *testing.T) {
	var out bytes.Buffer
	l := seededLedger(t)
	m := NewUsageManager(l, nil, &out)

	entries, err := l.List(context.Background())
	require.NoError(t, err)
	m.printEntries(entries)

	assert.Contains(t, out.String(), "limit $1.00")
	assert.Contains(t, out.String(), "198.51.100.5 | ⛔ Blocked")
	assert.Contains(t, out.String(), "198.51.100.4 | ✅ Active")

	out.Reset()
	m.printEntries(nil)
	assert.Contains(t, out.String(), "No usage recorded.")
}
