package mcptools

import (
	"context"
	"errors"
	"fmt"

	coreerrors "github.com/codeforge-dev/indexcore/internal/errors"
)

// JSON-RPC and tool-specific MCP error codes.
const (
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603
	ErrCodeIndexNotFound  = -32001
	ErrCodeTimeout        = -32003
)

// ToolError is an MCP protocol error with a stable code and message.
type ToolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError builds an invalid-params error with a custom message.
func NewInvalidParamsError(msg string) *ToolError {
	return &ToolError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError builds an unknown-tool error.
func NewMethodNotFoundError(name string) *ToolError {
	return &ToolError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool %q not found", name)}
}

// MapError converts a domain error (usually a *coreerrors.CoreError) into a
// ToolError, following the disposition classes of spec §7.
func MapError(err error) *ToolError {
	if err == nil {
		return nil
	}

	var ce *coreerrors.CoreError
	if errors.As(err, &ce) {
		return mapCoreError(ce)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ToolError{Code: ErrCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &ToolError{Code: ErrCodeTimeout, Message: "request was canceled"}
	default:
		return &ToolError{Code: ErrCodeInternalError, Message: err.Error()}
	}
}

func mapCoreError(ce *coreerrors.CoreError) *ToolError {
	switch ce.Kind {
	case coreerrors.KindSnapshotMissing:
		return &ToolError{Code: ErrCodeIndexNotFound, Message: ce.Error() + " — run index_codebase or index_git_history first"}
	case coreerrors.KindInvalidPath, coreerrors.KindInvalidFilter, coreerrors.KindInvalidDateRange, coreerrors.KindNotARepository:
		return &ToolError{Code: ErrCodeInvalidParams, Message: ce.Error()}
	case coreerrors.KindCancelled:
		return &ToolError{Code: ErrCodeTimeout, Message: ce.Error()}
	default:
		return &ToolError{Code: ErrCodeInternalError, Message: ce.Error()}
	}
}
