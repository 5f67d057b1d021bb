package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	walletsession "github.com/x402-foundation/walletsession"
	sessionhttp "github.com/x402-foundation/walletsession/http"
)

// Tool and resource names
const (
	ToolStatus     = "wallet_status"
	ToolConnect    = "wallet_connect"
	ToolDisconnect = "wallet_disconnect"

	SessionResourceURI = "wallet://session"
)

var emptyObjectSchema = json.RawMessage(`{"type": "object"}`)

// ServerConfig configures NewServer
type ServerConfig struct {
	Name    string
	Version string
}

// ServerOption configures NewServer
type ServerOption func(*ServerConfig)

// WithImplementation sets the server name and version reported to clients
func WithImplementation(name, version string) ServerOption {
	return func(c *ServerConfig) {
		c.Name = name
		c.Version = version
	}
}

// NewServer creates an MCP server whose tools operate on manager
func NewServer(manager *walletsession.Manager, opts ...ServerOption) *mcpsdk.Server {
	config := &ServerConfig{Name: "walletd", Version: "1.0.0"}
	for _, opt := range opts {
		opt(config)
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    config.Name,
		Version: config.Version,
	}, nil)

	handler := sessionhttp.NewSessionHandler(manager)

	server.AddTool(&mcpsdk.Tool{
		Name:        ToolStatus,
		Description: "Report the wallet connection status, account and native balance",
		InputSchema: emptyObjectSchema,
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return toolResult(handler.Status())
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        ToolConnect,
		Description: "Request account access from the detected wallet",
		InputSchema: emptyObjectSchema,
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return toolResult(handler.Connect(ctx))
	})

	server.AddTool(&mcpsdk.Tool{
		Name:        ToolDisconnect,
		Description: "Forget the connected account",
		InputSchema: emptyObjectSchema,
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return toolResult(handler.Disconnect())
	})

	server.AddResource(&mcpsdk.Resource{
		URI:         SessionResourceURI,
		Name:        "session",
		Description: "Current wallet session",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcpsdk.ReadResourceRequest) (*mcpsdk.ReadResourceResult, error) {
		_, resp := handler.Status()
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, err
		}
		return &mcpsdk.ReadResourceResult{
			Contents: []*mcpsdk.ResourceContents{{
				URI:      SessionResourceURI,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	})

	return server
}

// NewSSEHandler serves server over the SSE transport
func NewSSEHandler(server *mcpsdk.Server) http.Handler {
	return mcpsdk.NewSSEHandler(func(*http.Request) *mcpsdk.Server {
		return server
	}, &mcpsdk.SSEOptions{})
}

func toolResult(code int, resp sessionhttp.SessionResponse) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return &mcpsdk.CallToolResult{
		IsError: resp.Error != nil || code >= http.StatusBadRequest,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, nil
}
