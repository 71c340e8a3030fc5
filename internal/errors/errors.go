package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SearchFailed indicates the candidate-file search failed for a reason other than cancellation
	SearchFailed ErrorCode = "SEARCH_FAILED"
	// SearchTimeout indicates the candidate-file search exceeded its wall-clock limit
	SearchTimeout ErrorCode = "SEARCH_TIMEOUT"
	// ParseFailed indicates a single file could not be parsed
	ParseFailed ErrorCode = "PARSE_FAILED"
	// GrammarUnavailable indicates no grammar could be loaded for a language
	GrammarUnavailable ErrorCode = "GRAMMAR_UNAVAILABLE"
	// QueryFailed indicates a structural query could not be compiled or executed
	QueryFailed ErrorCode = "QUERY_FAILED"
	// DisposeFailed indicates a cached syntax tree could not be released
	DisposeFailed ErrorCode = "DISPOSE_FAILED"
	// ConfigInvalid indicates invalid configuration
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrCancelled marks work abandoned because the caller cancelled it.
// It is a signal, not a failure, and never crosses the orchestrator boundary.
var ErrCancelled = errors.New("operation cancelled")

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// InstallTool suggests installing a tool
	InstallTool FixActionType = "install-tool"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Description string        `json:"description,omitempty"`
	Tool        string        `json:"tool,omitempty"`
}

// Error is a lair error with a stable code, message and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the suggested fixes registered for its code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	SearchFailed: {
		{
			Type:        InstallTool,
			Tool:        "ripgrep",
			Description: "Install ripgrep or run with --search=walk",
		},
	},
	SearchTimeout: {
		{
			Type:        RunCommand,
			Command:     "lair analyze --root <subdir> <keywords...>",
			Description: "Narrow the search root",
		},
	},
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "lair config show",
			Description: "Inspect the effective configuration",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
