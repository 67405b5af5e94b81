package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaAction   = "action"
	MetaState    = "state"
	MetaSelector = "selector"
	MetaURL      = "url"
	MetaPath     = "path"

	StageBrowser  = "browser"
	StageSnapshot = "snapshot"
	StageSession  = "session"
	StageExport   = "export"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeUnavailable     = "unavailable"
	CodeBrowserNotReady = "browser_not_ready"
	CodeNothingCaptured = "nothing_captured"
	CodeAmbiguousTarget = "ambiguous_target"
	CodeUnknownAction   = "unknown_action"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or "".
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return ""
}
