// Package mcp exposes a wallet session to MCP clients.
//
// NewServer registers three tools on a go-sdk MCP server:
//
//	wallet_status      current session and its status presentation
//	wallet_connect     request account access from the wallet
//	wallet_disconnect  clear the session
//
// and a wallet://session resource with the same payload as wallet_status.
// Every tool returns the JSON encoding of http.SessionResponse as text
// content; failed connects set IsError and carry the session error code.
//
// Usage:
//
//	server := mcp.NewServer(manager)
//	http.Handle("/sse", mcp.NewSSEHandler(server))
package mcp
