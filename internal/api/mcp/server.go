// Package mcp exposes the chronology as a set of Model Context Protocol
// tools over JSON-RPC 2.0. The protocol layer is self-contained: framing,
// the initialize handshake, tool listing and dispatch, and the schema
// resource all live here.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/dateparse"
	"github.com/casefolio/chronicle/internal/export"
	"github.com/casefolio/chronicle/internal/extract"
	"github.com/casefolio/chronicle/pkg/types"
)

const (
	serverName      = "chronicle"
	serverVersion   = "1.0.0"
	protocolVersion = "2024-11-05"

	chronologySchemaURI = "schema://chronology"
)

// eventRepository is the slice of the chronology repository the tool
// surface needs. Narrow on purpose so tests can substitute a fake.
type eventRepository interface {
	Add(ctx context.Context, p chronology.AddParams) (*types.Event, error)
	Update(ctx context.Context, id int, p chronology.UpdateParams) (*types.Event, error)
	Delete(ctx context.Context, id int) error
	Snapshot() chronology.Snapshot
}

// documentExtractor matches extract.Extractor.
type documentExtractor interface {
	Extract(ctx context.Context, content, documentName string, defaultParties []string) (*extract.Result, error)
}

// Server dispatches JSON-RPC requests to chronology operations. One server
// handles one client connection; the transport drives it sequentially.
type Server struct {
	repo      eventRepository
	extractor documentExtractor
	sessionID string
	logger    *log.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger replaces the default stderr logger.
func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithExtractor replaces the default extractor, for tests.
func WithExtractor(x documentExtractor) ServerOption {
	return func(s *Server) { s.extractor = x }
}

// NewServer creates a tool server over the given repository.
func NewServer(repo eventRepository, opts ...ServerOption) *Server {
	s := &Server{
		repo:      repo,
		extractor: extract.New(repo),
		sessionID: uuid.New().String(),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionID identifies this server instance in logs.
func (s *Server) SessionID() string {
	return s.sessionID
}

// HandleRequest routes one JSON-RPC request. Notifications return nil.
func (s *Server) HandleRequest(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized", "notifications/initialized":
		return nil
	case "tools/list":
		return successResponse(req.ID, MCPToolsListResult{Tools: buildToolsList()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return s.handleResourcesList(req)
	case "resources/read":
		return s.handleResourcesRead(req)
	case "add_event", "parse_document", "search_timeline", "get_timeline_summary",
		"export_chronology", "update_event", "delete_event":
		// Native method aliases bypass the tools/call envelope.
		result, err := s.callTool(ctx, req.Method, req.Params)
		if err != nil {
			return errorResponse(req.ID, ErrCodeInvalidParams, err.Error())
		}
		return successResponse(req.ID, result)
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *JSONRPCRequest) *JSONRPCResponse {
	s.logger.Printf("session %s: client initialized", s.sessionID)
	return successResponse(req.ID, MCPInitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: MCPCapabilities{
			Tools:     map[string]interface{}{},
			Resources: map[string]interface{}{},
		},
		ServerInfo: MCPServerInfo{Name: serverName, Version: serverVersion},
	})
}

func (s *Server) handleToolsCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params MCPToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrCodeInvalidParams,
			fmt.Sprintf("invalid tools/call params: %v", err))
	}

	result, err := s.callTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errUnknownTool) {
			return errorResponse(req.ID, ErrCodeMethodNotFound, err.Error())
		}
		return errorResponse(req.ID, ErrCodeInternal, err.Error())
	}

	text, ok := result.(string)
	if !ok {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errorResponse(req.ID, ErrCodeInternal, err.Error())
		}
		text = string(data)
	}
	return successResponse(req.ID, MCPToolCallResult{
		Content: []MCPContent{{Type: "text", Text: text}},
	})
}

var errUnknownTool = errors.New("unknown tool")

// callTool decodes arguments and runs one tool. Expected domain failures
// come back inside the result value, not as an error.
func (s *Server) callTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "add_event":
		var a AddEventArgs
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return s.addEvent(ctx, a)
	case "parse_document":
		var a ParseDocumentArgs
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return s.parseDocument(ctx, a)
	case "search_timeline":
		var a SearchTimelineArgs
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return s.searchTimeline(a)
	case "get_timeline_summary":
		return chronology.Summarize(s.repo.Snapshot()), nil
	case "export_chronology":
		var a ExportChronologyArgs
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return s.exportChronology(a), nil
	case "update_event":
		var a UpdateEventArgs
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return s.updateEvent(ctx, a)
	case "delete_event":
		var a DeleteEventArgs
		if err := unmarshalArgs(args, &a); err != nil {
			return nil, err
		}
		return s.deleteEvent(ctx, a)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

func (s *Server) addEvent(ctx context.Context, a AddEventArgs) (interface{}, error) {
	if a.DateString == "" {
		return AddEventResult{Status: "error", Message: "date_string is required"}, nil
	}

	e, err := s.repo.Add(ctx, chronology.AddParams{
		DateString:      a.DateString,
		Description:     a.Description,
		Parties:         a.Parties,
		DocumentSource:  a.DocumentSource,
		DocumentExcerpt: a.DocumentExcerpt,
		Tags:            a.Tags,
		Significance:    a.Significance,
	})
	var perr *dateparse.ParseError
	if errors.As(err, &perr) {
		return AddEventResult{Status: "error", Message: perr.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Printf("session %s: added event %d", s.sessionID, e.ID)
	return AddEventResult{
		Status:  "success",
		EventID: e.ID,
		Message: fmt.Sprintf("Added event on %s (%s): %s",
			e.Date, e.DatePrecision, summarizeText(e.Description, 50)),
	}, nil
}

func (s *Server) parseDocument(ctx context.Context, a ParseDocumentArgs) (interface{}, error) {
	if a.DocumentName == "" {
		return ParseDocumentResult{Status: "error", Message: "document_name is required", EventIDs: []int{}}, nil
	}

	result, err := s.extractor.Extract(ctx, a.Content, a.DocumentName, a.DefaultParties)
	if err != nil {
		return nil, err
	}

	s.logger.Printf("session %s: extracted %d events from %s",
		s.sessionID, result.EventsAdded, a.DocumentName)
	return ParseDocumentResult{
		Status:      "success",
		EventsFound: result.EventsFound,
		EventsAdded: result.EventsAdded,
		EventIDs:    result.EventIDs,
		Message:     fmt.Sprintf("Extracted %d events from %s", result.EventsAdded, a.DocumentName),
	}, nil
}

func (s *Server) searchTimeline(a SearchTimelineArgs) (interface{}, error) {
	filter := chronology.Filter{
		Parties:  a.Parties,
		Keywords: a.Keywords,
		Tags:     a.Tags,
	}
	if a.StartDate != "" {
		d, _, err := dateparse.Parse(a.StartDate)
		if err != nil {
			return nil, fmt.Errorf("start_date: %w", err)
		}
		filter.Start = d
	}
	if a.EndDate != "" {
		d, _, err := dateparse.Parse(a.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		filter.End = d
	}

	events := chronology.Search(s.repo.Snapshot().Events, filter)
	return SearchTimelineResult{Status: "success", Count: len(events), Events: events}, nil
}

func (s *Server) exportChronology(a ExportChronologyArgs) string {
	format := a.Format
	if format == "" {
		format = "markdown"
	}
	opts := export.Options{
		Format:              format,
		IncludeDocuments:    a.IncludeDocuments == nil || *a.IncludeDocuments,
		IncludeSignificance: a.IncludeSignificance == nil || *a.IncludeSignificance,
	}
	sorted := chronology.Search(s.repo.Snapshot().Events, chronology.Filter{})
	return export.Render(sorted, opts)
}

func (s *Server) updateEvent(ctx context.Context, a UpdateEventArgs) (interface{}, error) {
	params := chronology.UpdateParams{
		DateString:   a.DateString,
		Description:  a.Description,
		Significance: a.Significance,
	}
	if a.Parties != nil {
		params.Parties = ensureSlice(*a.Parties)
	}
	if a.Tags != nil {
		params.Tags = ensureSlice(*a.Tags)
	}

	_, err := s.repo.Update(ctx, a.EventID, params)
	if errors.Is(err, chronology.ErrNotFound) {
		return UpdateEventResult{Status: "error", Message: fmt.Sprintf("Event %d not found", a.EventID)}, nil
	}
	var perr *dateparse.ParseError
	if errors.As(err, &perr) {
		return UpdateEventResult{Status: "error", Message: perr.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	return UpdateEventResult{Status: "success", Message: fmt.Sprintf("Updated event %d", a.EventID)}, nil
}

func (s *Server) deleteEvent(ctx context.Context, a DeleteEventArgs) (interface{}, error) {
	err := s.repo.Delete(ctx, a.EventID)
	if errors.Is(err, chronology.ErrNotFound) {
		return DeleteEventResult{Status: "error", Message: fmt.Sprintf("Event %d not found", a.EventID)}, nil
	}
	if err != nil {
		return nil, err
	}
	return DeleteEventResult{Status: "success", Message: fmt.Sprintf("Deleted event %d", a.EventID)}, nil
}

func (s *Server) handleResourcesList(req *JSONRPCRequest) *JSONRPCResponse {
	return successResponse(req.ID, MCPResourcesListResult{
		Resources: []MCPResource{
			{
				URI:         chronologySchemaURI,
				Name:        "Chronology data structure",
				Description: "Field layout of chronology events and the date expressions the parser accepts",
				MimeType:    "text/plain",
			},
		},
	})
}

func (s *Server) handleResourcesRead(req *JSONRPCRequest) *JSONRPCResponse {
	var params MCPResourceReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, ErrCodeInvalidParams,
			fmt.Sprintf("invalid resources/read params: %v", err))
	}
	if params.URI != chronologySchemaURI {
		return errorResponse(req.ID, ErrCodeInvalidParams,
			fmt.Sprintf("unknown resource: %s", params.URI))
	}
	return successResponse(req.ID, MCPResourceReadResult{
		Contents: []MCPResourceContents{
			{URI: chronologySchemaURI, MimeType: "text/plain", Text: chronologySchemaDoc},
		},
	})
}

const chronologySchemaDoc = `Case Chronology Event Structure:

- id: unique integer, assigned at creation, never reused
- date: event date (YYYY-MM-DD)
- date_precision: exact | month | quarter | approximate
- description: what happened
- parties: people or entities involved
- document_source: document the event came from
- document_excerpt: supporting text from the document
- tags: categorisation labels (auto-extracted marks parser output)
- significance: why the event matters
- created_at / updated_at: record timestamps

Accepted date expressions:
- 3/15/2023              -> exact
- March 15, 2023         -> exact
- March 2023             -> month (resolves to the 1st)
- early June 2022        -> approximate (1st)
- mid June 2022          -> approximate (15th)
- late June 2022         -> approximate (28th)
- around March 2023      -> approximate
- Q2 2023                -> quarter (first day of the quarter)
`

func unmarshalArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func successResponse(id, result interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id interface{}, code int, message string) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}

// summarizeText trims a description for log-style messages, marking the cut
// with an ellipsis. Counted in runes so multibyte text is never split.
func summarizeText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// ensureSlice turns a nil slice into an empty one so "provided but empty"
// survives into the repository's clear semantics.
func ensureSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func buildToolsList() []MCPTool {
	return []MCPTool{
		{
			Name:        "add_event",
			Description: "Add a dated event to the case chronology",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"date_string": map[string]interface{}{
						"type":        "string",
						"description": "Date expression, e.g. '3/15/2023', 'March 2023', 'early June 2022', 'Q2 2023'",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "What happened",
					},
					"parties": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Parties involved in the event",
					},
					"document_source": map[string]interface{}{
						"type":        "string",
						"description": "Document the event came from",
					},
					"document_excerpt": map[string]interface{}{
						"type":        "string",
						"description": "Supporting text from the document",
					},
					"tags": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Categorisation labels",
					},
					"significance": map[string]interface{}{
						"type":        "string",
						"description": "Why the event matters to the case",
					},
				},
				"required": []string{"date_string", "description"},
			},
		},
		{
			Name:        "parse_document",
			Description: "Scan document text for dated statements and add them as events",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Raw document text",
					},
					"document_name": map[string]interface{}{
						"type":        "string",
						"description": "Name recorded as the document source",
					},
					"default_parties": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Parties attached to every extracted event",
					},
				},
				"required": []string{"content", "document_name"},
			},
		},
		{
			Name:        "search_timeline",
			Description: "Search chronology events by date range, parties, keywords, and tags",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"start_date": map[string]interface{}{
						"type":        "string",
						"description": "Inclusive lower bound date expression",
					},
					"end_date": map[string]interface{}{
						"type":        "string",
						"description": "Inclusive upper bound date expression",
					},
					"parties": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Match events listing any of these parties",
					},
					"keywords": map[string]interface{}{
						"type":        "string",
						"description": "Case-insensitive substring match",
					},
					"tags": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Match events carrying any of these tags",
					},
				},
			},
		},
		{
			Name:        "get_timeline_summary",
			Description: "Summarise the chronology: event count, date range, parties, documents, tags",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "export_chronology",
			Description: "Render the chronology as markdown, CSV, a brief listing, or JSON",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"markdown", "csv", "brief", "json"},
						"description": "Output format (default markdown)",
					},
					"include_documents": map[string]interface{}{
						"type":        "boolean",
						"description": "Include document sources and excerpts (default true)",
					},
					"include_significance": map[string]interface{}{
						"type":        "boolean",
						"description": "Include significance notes (default true)",
					},
				},
			},
		},
		{
			Name:        "update_event",
			Description: "Update fields of an existing event; omitted fields are unchanged",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"event_id": map[string]interface{}{
						"type":        "integer",
						"description": "Id of the event to update",
					},
					"date_string": map[string]interface{}{
						"type":        "string",
						"description": "New date expression",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "New description",
					},
					"parties": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Replacement party list; empty list clears",
					},
					"tags": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Replacement tag list; empty list clears",
					},
					"significance": map[string]interface{}{
						"type":        "string",
						"description": "New significance; empty string clears",
					},
				},
				"required": []string{"event_id"},
			},
		},
		{
			Name:        "delete_event",
			Description: "Remove an event from the chronology; its id is never reused",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"event_id": map[string]interface{}{
						"type":        "integer",
						"description": "Id of the event to delete",
					},
				},
				"required": []string{"event_id"},
			},
		},
	}
}
