package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/casefolio/chronicle/pkg/types"
)

// JSON-RPC 2.0 framing.

// JSONRPCRequest is an incoming request or notification.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse is the reply to a request.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError is a protocol-level failure. Domain failures (bad dates,
// unknown ids) never use this; they travel as structured tool results.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeServer         = -32000
)

// MCP protocol types.

// MCPInitializeResult is the response to the initialize handshake.
type MCPInitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    MCPCapabilities `json:"capabilities"`
	ServerInfo      MCPServerInfo   `json:"serverInfo"`
}

type MCPCapabilities struct {
	Tools     map[string]interface{} `json:"tools,omitempty"`
	Resources map[string]interface{} `json:"resources,omitempty"`
}

type MCPServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// MCPTool describes one tool for tools/list.
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

type MCPToolsListResult struct {
	Tools []MCPTool `json:"tools"`
}

// MCPToolCallParams are the params of a tools/call request.
type MCPToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// MCPToolCallResult wraps a tool's output in the MCP content envelope.
type MCPToolCallResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCPResource describes one resource for resources/list.
type MCPResource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type MCPResourcesListResult struct {
	Resources []MCPResource `json:"resources"`
}

type MCPResourceReadParams struct {
	URI string `json:"uri"`
}

type MCPResourceReadResult struct {
	Contents []MCPResourceContents `json:"contents"`
}

type MCPResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// stringList accepts a JSON array of strings, a single string, or a
// comma-separated string. Some MCP clients flatten list arguments to
// strings, so tool args are tolerant here.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*s = asList
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("expected string array or string: %s", data)
	}
	if asString == "" {
		*s = []string{}
		return nil
	}
	// A stringified JSON array is decoded; anything else splits on commas.
	if strings.HasPrefix(asString, "[") {
		if err := json.Unmarshal([]byte(asString), &asList); err == nil {
			*s = asList
			return nil
		}
	}
	parts := strings.Split(asString, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*s = out
	return nil
}

// Tool argument and result shapes.

// AddEventArgs are the arguments of add_event.
type AddEventArgs struct {
	DateString      string     `json:"date_string"`                // required; loose date expression
	Description     string     `json:"description"`                // what happened
	Parties         stringList `json:"parties,omitempty"`          // involved parties
	DocumentSource  string     `json:"document_source,omitempty"`  // originating document
	DocumentExcerpt string     `json:"document_excerpt,omitempty"` // supporting text
	Tags            stringList `json:"tags,omitempty"`
	Significance    string     `json:"significance,omitempty"` // why the event matters
}

// AddEventResult reports the outcome of add_event.
type AddEventResult struct {
	Status  string `json:"status"`
	EventID int    `json:"event_id,omitempty"`
	Message string `json:"message"`
}

// ParseDocumentArgs are the arguments of parse_document.
type ParseDocumentArgs struct {
	Content        string     `json:"content"`       // raw document text
	DocumentName   string     `json:"document_name"` // recorded as document_source
	DefaultParties stringList `json:"default_parties,omitempty"`
}

// ParseDocumentResult reports the outcome of parse_document.
type ParseDocumentResult struct {
	Status      string `json:"status"`
	EventsFound int    `json:"events_found"`
	EventsAdded int    `json:"events_added"`
	EventIDs    []int  `json:"event_ids"`
	Message     string `json:"message"`
}

// SearchTimelineArgs are the arguments of search_timeline. All filters are
// optional and combine with AND.
type SearchTimelineArgs struct {
	StartDate string     `json:"start_date,omitempty"` // inclusive lower bound
	EndDate   string     `json:"end_date,omitempty"`   // inclusive upper bound
	Parties   stringList `json:"parties,omitempty"`    // match any
	Keywords  string     `json:"keywords,omitempty"`   // case-insensitive substring
	Tags      stringList `json:"tags,omitempty"`       // match any
}

// SearchTimelineResult carries matching events in date order.
type SearchTimelineResult struct {
	Status string        `json:"status"`
	Count  int           `json:"count"`
	Events []types.Event `json:"events"`
}

// ExportChronologyArgs are the arguments of export_chronology. Nil include
// flags default to true.
type ExportChronologyArgs struct {
	Format              string `json:"format,omitempty"` // markdown, csv, brief; default markdown
	IncludeDocuments    *bool  `json:"include_documents,omitempty"`
	IncludeSignificance *bool  `json:"include_significance,omitempty"`
}

// UpdateEventArgs are the arguments of update_event. Omitted fields leave
// the event unchanged; empty arrays clear parties/tags; an empty
// significance string clears it.
type UpdateEventArgs struct {
	EventID      int       `json:"event_id"`
	DateString   string    `json:"date_string,omitempty"`
	Description  string    `json:"description,omitempty"`
	Parties      *[]string `json:"parties,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Significance *string   `json:"significance,omitempty"`
}

// UpdateEventResult reports the outcome of update_event.
type UpdateEventResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DeleteEventArgs are the arguments of delete_event.
type DeleteEventArgs struct {
	EventID int `json:"event_id"`
}

// DeleteEventResult reports the outcome of delete_event.
type DeleteEventResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
