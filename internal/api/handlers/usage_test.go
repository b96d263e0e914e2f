package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/scoutchat/internal/api/middleware"
	"github.com/andrew/scoutchat/internal/database/models"
	"github.com/andrew/scoutchat/internal/ledger"
	"github.com/andrew/scoutchat/internal/prompt"
)

func getAs(id, target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	return r.WithContext(context.WithValue(r.Context(), middleware.IdentityContextKey, id))
}

func TestHandleGetUsage(t *testing.T) {
	l := ledger.New(ledger.NewMemoryStore(), ledger.Config{})
	_, err := l.RecordUsage(context.Background(), "kid", 0, 20000)
	require.NoError(t, err)

	h := NewUsageHandler(l, nil, discardLogger())

	rec := httptest.NewRecorder()
	h.HandleGetUsage(rec, getAs("kid", "/usage"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 0.3, body["used"], 1e-9)
	assert.InDelta(t, 0.7, body["remaining"], 1e-9)
	assert.InDelta(t, 30, body["percentage"], 1e-9)
	assert.Equal(t, 1.0, body["requestCount"])
	assert.Equal(t, 1.0, body["limit"])
}

func TestHandleGetUsage_Unknown(t *testing.T) {
	h := NewUsageHandler(ledger.New(ledger.NewMemoryStore(), ledger.Config{}), nil, discardLogger())

	rec := httptest.NewRecorder()
	h.HandleGetUsage(rec, getAs("new", "/usage"))

	var body UsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Used)
	assert.Equal(t, 1.0, body.Remaining)
	assert.Zero(t, body.Percentage)
}

func TestHandleGetHistory(t *testing.T) {
	events := &fakeEvents{}
	require.NoError(t, events.CreateUsageEvent(context.Background(), &models.UsageEvent{Identity: "kid", Outcome: models.OutcomeOK}))
	require.NoError(t, events.CreateUsageEvent(context.Background(), &models.UsageEvent{Identity: "other", Outcome: models.OutcomeOK}))

	h := NewUsageHandler(ledger.New(ledger.NewMemoryStore(), ledger.Config{}), events, discardLogger())

	rec := httptest.NewRecorder()
	h.HandleGetHistory(rec, getAs("kid", "/usage/history?limit=5&start_time=bogus"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []models.UsageEvent `json:"events"`
		Stats  models.UsageStats   `json:"stats"`
		Limit  int                 `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Events, 1)
	assert.Equal(t, 1, body.Stats.TotalRequests)
	assert.Equal(t, 5, body.Limit)
}

func TestHandleGetHistory_Unavailable(t *testing.T) {
	h := NewUsageHandler(ledger.New(ledger.NewMemoryStore(), ledger.Config{}), nil, discardLogger())

	rec := httptest.NewRecorder()
	h.HandleGetHistory(rec, getAs("kid", "/usage/history"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDiagnostic(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDiagnosticHandler("sk-ant-secret-value").HandleDiagnostic(rec, httptest.NewRequest(http.MethodGet, "/diagnostic", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["hasApiKey"])
	assert.EqualValues(t, 19, body["keyLength"])
	assert.NotContains(t, rec.Body.String(), "sk-ant")

	rec = httptest.NewRecorder()
	NewDiagnosticHandler("").HandleDiagnostic(rec, httptest.NewRequest(http.MethodGet, "/diagnostic", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["hasApiKey"])
}

func TestHandleExamples(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		count  int
		level  string
	}{
		{"all", "/examples", http.StatusOK, 9, ""},
		{"by level", "/examples?level=hard", http.StatusOK, 3, "hard"},
		{"by age", "/examples?age=12", http.StatusOK, 3, "medium"},
		{"bad level", "/examples?level=college", http.StatusBadRequest, 0, ""},
		{"bad age", "/examples?age=ten", http.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleExamples(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}

			var body struct {
				Examples []prompt.Example `json:"examples"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Len(t, body.Examples, tt.count)
			if tt.level != "" {
				for _, e := range body.Examples {
					assert.Equal(t, tt.level, e.Level)
				}
			}
		})
	}
}

func TestHandleTier(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleTier(rec, httptest.NewRequest(http.MethodGet, "/settings/tier?age=14", nil))

	var body TierResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 14, body.Age)
	assert.Equal(t, "High School", body.Label)
	assert.Equal(t, "hard", body.Level)

	rec = httptest.NewRecorder()
	HandleTier(rec, httptest.NewRequest(http.MethodGet, "/settings/tier", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, prompt.DefaultAge, body.Age)
	assert.Equal(t, "Elementary School", body.Label)
}
