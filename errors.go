package walletsession

import (
	"errors"
	"fmt"
)

// SessionError represents a wallet-session specific error
type SessionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying provider error, if any
func (e *SessionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a SessionError with the same code.
// This lets callers match wrapped errors against the package sentinels.
func (e *SessionError) Is(target error) bool {
	var t *SessionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Common error codes
const (
	ErrCodeNoProviderFound    = "no_provider_found"
	ErrCodeConnectionRejected = "connection_rejected"
	ErrCodeBalanceFetchFailed = "balance_fetch_failed"
	ErrCodeInvalidContextUse  = "invalid_context_use"
)

// Sentinels for errors.Is
var (
	ErrNoProviderFound    = &SessionError{Code: ErrCodeNoProviderFound, Message: "no provider detected, install MetaMask or Phantom wallet"}
	ErrConnectionRejected = &SessionError{Code: ErrCodeConnectionRejected, Message: "wallet connection rejected"}
	ErrBalanceFetchFailed = &SessionError{Code: ErrCodeBalanceFetchFailed, Message: "balance fetch failed"}
	ErrInvalidContextUse  = &SessionError{Code: ErrCodeInvalidContextUse, Message: "session manager used outside its scope"}
)

// NewSessionError creates a new session error
func NewSessionError(code, message string, err error) *SessionError {
	return &SessionError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ProviderRPCError is the EIP-1193 shaped error a provider returns when a
// request fails. Solana wallets reuse the same codes.
type ProviderRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *ProviderRPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// EIP-1193 provider error codes
const (
	ProviderErrUserRejected      = 4001
	ProviderErrUnauthorized      = 4100
	ProviderErrUnsupportedMethod = 4200
	ProviderErrDisconnected      = 4900
	ProviderErrChainDisconnected = 4901
)

// IsUserRejected reports whether err carries the EIP-1193 user rejection code
func IsUserRejected(err error) bool {
	var rpcErr *ProviderRPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == ProviderErrUserRejected
}
