package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefolio/chronicle/internal/api/mcp"
	"github.com/casefolio/chronicle/internal/chronology"
	"github.com/casefolio/chronicle/internal/storage/memory"
)

func serveFrames(t *testing.T, frames ...string) []map[string]interface{} {
	t.Helper()

	repo, err := chronology.NewRepository(context.Background(), memory.New())
	require.NoError(t, err)
	server := mcp.NewServer(repo, mcp.WithLogger(log.New(io.Discard, "", 0)))

	in := strings.NewReader(strings.Join(frames, "\n") + "\n")
	var out bytes.Buffer
	transport := mcp.NewStdioTransport(server, in, &out, log.New(io.Discard, "", 0))
	require.NoError(t, transport.Serve(context.Background()))

	var responses []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestServeHandlesSession(t *testing.T) {
	responses := serveFrames(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"add_event","arguments":{"date_string":"3/15/2023","description":"Contract signed"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"get_timeline_summary"}`,
	)

	// The notification produces no frame.
	require.Len(t, responses, 3)
	assert.Equal(t, float64(1), responses[0]["id"])
	assert.Equal(t, float64(2), responses[1]["id"])

	summary := responses[2]["result"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["total_events"])
}

func TestServeMalformedFrame(t *testing.T) {
	responses := serveFrames(t,
		`{this is not json`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/list"}`,
	)

	require.Len(t, responses, 2)
	errObj := responses[0]["error"].(map[string]interface{})
	assert.Equal(t, float64(mcp.ErrCodeParse), errObj["code"])

	// The connection survives the bad frame.
	assert.Equal(t, float64(5), responses[1]["id"])
}

func TestServeSkipsBlankLines(t *testing.T) {
	responses := serveFrames(t,
		``,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
	)
	require.Len(t, responses, 1)
}
