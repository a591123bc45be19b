// Package handlers implements the REST surface over the chronology: search,
// summary, export, and event creation, plus the websocket activity feed.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/dateparse"
	"github.com/casefolio/chronicle/internal/export"
	"github.com/casefolio/chronicle/pkg/types"
)

// timelineRepository is the repository slice the handlers need.
type timelineRepository interface {
	Add(ctx context.Context, p chronology.AddParams) (*types.Event, error)
	Snapshot() chronology.Snapshot
}

// TimelineHandlers serves the chronology over HTTP. The repository is a
// single-writer structure, so all access goes through the mutex; request
// volume here is human-scale and never contends meaningfully.
type TimelineHandlers struct {
	mu     sync.Mutex
	repo   timelineRepository
	logger *log.Logger
}

// NewTimelineHandlers wires handlers to a repository.
func NewTimelineHandlers(repo timelineRepository, logger *log.Logger) *TimelineHandlers {
	if logger == nil {
		logger = log.Default()
	}
	return &TimelineHandlers{repo: repo, logger: logger}
}

// Search handles GET /api/timeline. Query params: start, end, parties
// (comma separated), keywords, tags (comma separated).
func (h *TimelineHandlers) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	filter := chronology.Filter{
		Parties:  splitParam(q.Get("parties")),
		Keywords: q.Get("keywords"),
		Tags:     splitParam(q.Get("tags")),
	}
	if v := q.Get("start"); v != "" {
		d, _, err := dateparse.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid start date: %v", err))
			return
		}
		filter.Start = d
	}
	if v := q.Get("end"); v != "" {
		d, _, err := dateparse.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid end date: %v", err))
			return
		}
		filter.End = d
	}

	h.mu.Lock()
	snap := h.repo.Snapshot()
	h.mu.Unlock()

	events := chronology.Search(snap.Events, filter)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

// Summary handles GET /api/summary.
func (h *TimelineHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	h.mu.Lock()
	snap := h.repo.Snapshot()
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, chronology.Summarize(snap))
}

// Export handles GET /api/export. Query params: format, include_documents,
// include_significance.
func (h *TimelineHandlers) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "markdown"
	}
	opts := export.Options{
		Format:              format,
		IncludeDocuments:    q.Get("include_documents") != "false",
		IncludeSignificance: q.Get("include_significance") != "false",
	}

	h.mu.Lock()
	snap := h.repo.Snapshot()
	h.mu.Unlock()

	sorted := chronology.Search(snap.Events, chronology.Filter{})
	w.Header().Set("Content-Type", contentTypeFor(format))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(export.Render(sorted, opts)))
}

// createEventRequest is the POST /api/events body.
type createEventRequest struct {
	DateString      string   `json:"date_string"`
	Description     string   `json:"description"`
	Parties         []string `json:"parties"`
	DocumentSource  string   `json:"document_source"`
	DocumentExcerpt string   `json:"document_excerpt"`
	Tags            []string `json:"tags"`
	Significance    string   `json:"significance"`
}

// CreateEvent handles POST /api/events.
func (h *TimelineHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.DateString == "" {
		respondError(w, http.StatusBadRequest, "date_string is required")
		return
	}

	h.mu.Lock()
	e, err := h.repo.Add(r.Context(), chronology.AddParams{
		DateString:      req.DateString,
		Description:     req.Description,
		Parties:         req.Parties,
		DocumentSource:  req.DocumentSource,
		DocumentExcerpt: req.DocumentExcerpt,
		Tags:            req.Tags,
		Significance:    req.Significance,
	})
	h.mu.Unlock()

	var perr *dateparse.ParseError
	if errors.As(err, &perr) {
		respondError(w, http.StatusBadRequest, perr.Error())
		return
	}
	if err != nil {
		h.logger.Printf("create event: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to store event")
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func splitParam(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func contentTypeFor(format string) string {
	switch format {
	case "csv":
		return "text/csv; charset=utf-8"
	case "markdown", "brief":
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
