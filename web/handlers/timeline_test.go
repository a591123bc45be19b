package handlers_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/storage/memory"
	"github.com/casefolio/chronicle/pkg/types"
	"github.com/casefolio/chronicle/web/handlers"
)

func newHandlers(t *testing.T) (*handlers.TimelineHandlers, *chronology.Repository) {
	t.Helper()
	repo, err := chronology.NewRepository(context.Background(), memory.New())
	require.NoError(t, err)
	return handlers.NewTimelineHandlers(repo, log.New(io.Discard, "", 0)), repo
}

func seed(t *testing.T, repo *chronology.Repository) {
	t.Helper()
	for _, p := range []chronology.AddParams{
		{DateString: "1/10/2023", Description: "Complaint filed", Parties: []string{"Acme Corp"}, Tags: []string{"pleading"}},
		{DateString: "3/15/2023", Description: "Contract breach alleged", Parties: []string{"Jones LLC"}},
		{DateString: "6/1/2023", Description: "Deposition", Parties: []string{"Jones LLC"}},
	} {
		_, err := repo.Add(context.Background(), p)
		require.NoError(t, err)
	}
}

func TestSearchEndpoint(t *testing.T) {
	h, repo := newHandlers(t)
	seed(t, repo)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet,
		"/api/timeline?start=2/1/2023&parties=Jones+LLC", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Count  int           `json:"count"`
		Events []types.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "Contract breach alleged", body.Events[0].Description)
}

func TestSearchEndpointBadDate(t *testing.T) {
	h, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/timeline?start=whenever", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	h, repo := newHandlers(t)
	seed(t, repo)

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var summary chronology.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalEvents)
	assert.Equal(t, "2023-01-10 to 2023-06-01", summary.DateRange)
	assert.Equal(t, []string{"Acme Corp", "Jones LLC"}, summary.Parties)
}

func TestExportEndpointCSV(t *testing.T) {
	h, repo := newHandlers(t)
	seed(t, repo)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4) // header + 3 events
}

func TestCreateEventEndpoint(t *testing.T) {
	h, repo := newHandlers(t)

	body := `{"date_string":"3/15/2023","description":"Contract signed","parties":["Acme Corp"]}`
	rec := httptest.NewRecorder()
	h.CreateEvent(rec, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var e types.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, 1, e.ID)
	assert.Equal(t, "2023-03-15", e.Date.String())

	snap := repo.Snapshot()
	require.Len(t, snap.Events, 1)
}

func TestCreateEventBadDate(t *testing.T) {
	h, _ := newHandlers(t)

	body := `{"date_string":"not a date","description":"x"}`
	rec := httptest.NewRecorder()
	h.CreateEvent(rec, httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a date")
}

func TestCreateEventRequiresPost(t *testing.T) {
	h, _ := newHandlers(t)

	rec := httptest.NewRecorder()
	h.CreateEvent(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
