// Package toolkit holds the plumbing shared by the opsflow MCP servers: tool
// registration with logging and error shaping, and the stdio entrypoint.
package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelsbailbonds/opsflow/pkg/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Handler is the body of a tool. The returned value becomes the tool's text
// content: strings are sent as-is, anything else as indented JSON.
type Handler[In any] func(ctx context.Context, in In) (any, error)

func NewServer(name, version string) *mcp.Server {
	return mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
}

// AddTool registers a tool whose failures are reported to the model as tool
// errors instead of protocol errors, so the caller can read what went wrong.
func AddTool[In any](server *mcp.Server, name, description string, handler Handler[In]) {
	tool := &mcp.Tool{Name: name, Description: description}

	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		logger := log.With().Str("tool", name).Logger()
		start := time.Now()

		out, err := handler(ctx, in)
		if err != nil {
			err = domain.Classify(name, err)
			logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("Tool call failed")
			return ErrorResult(err), nil, nil
		}

		result, err := Result(out)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to encode tool result")
			return ErrorResult(err), nil, nil
		}

		logger.Debug().Dur("duration", time.Since(start)).Msg("Tool call completed")

		return result, nil, nil
	})
}

func Text(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func Result(value any) (*mcp.CallToolResult, error) {
	if s, ok := value.(string); ok {
		return Text("%s", s), nil
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return Text("%s", data), nil
}

func ErrorResult(err error) *mcp.CallToolResult {
	result := Text("error: %v", err)
	result.IsError = true
	return result
}

// Serve runs the server over stdin/stdout until the client disconnects or
// ctx is cancelled.
func Serve(ctx context.Context, server *mcp.Server, name string) error {
	log.Info().Str("server", name).Msg("Serving MCP over stdio")

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server %s stopped: %w", name, err)
	}

	return nil
}

// Limit clamps a caller supplied page size.
func Limit(requested, fallback, max int) int {
	if requested <= 0 {
		return fallback
	}
	if requested > max {
		return max
	}
	return requested
}
