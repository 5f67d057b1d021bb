package config

import "errors"

// Config validation errors
var (
	ErrInvalidRouter     = errors.New("config: router must be gin, echo or stdlib")
	ErrInvalidLogLevel   = errors.New("config: invalid log level")
	ErrInvalidTimeout    = errors.New("config: timeouts must not be negative")
	ErrMissingEVMRPCURL  = errors.New("config: evm.rpcUrl is required when EVM keys are set")
	ErrMissingSVMRPCURL  = errors.New("config: svm.rpcUrl is required when Solana keys are set")
	ErrInvalidCommitment = errors.New("config: svm.commitment must be processed, confirmed or finalized")
	ErrInvalidFile       = errors.New("config: file does not match schema")
)
