// Package commands implements the walletd command line.
//
//	walletd serve        run the session daemon (HTTP + MCP)
//	walletd status       print the session of a running daemon
//	walletd connect      ask a running daemon to connect
//	walletd disconnect   ask a running daemon to disconnect
//
// serve reads its configuration through pkg/config: an optional --config JSON
// file, a .env file and WALLETD_*, EVM_* and SVM_* environment variables.
package commands
