package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/invitetrack/internal/platform"
)

// AttributionError represents a failed snapshot or attribution attempt.
//
// A nil attribution with a nil error is the normal "no delta" outcome and is
// never represented as an AttributionError.
type AttributionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// CommunityID identifies the affected community.
	CommunityID string

	// Op names the step that failed ("list invites", "read baseline", ...).
	Op string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes attribution errors.
type ErrorCode string

const (
	// ErrCodePermissionDenied means the platform refused to list invites.
	// Retrying will not help within the same join.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrCodeUnavailable means the live fetch failed for a reason other
	// than permissions.
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"

	// ErrCodeStorage means the baseline store could not be read or written.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Error implements the error interface.
func (e *AttributionError) Error() string {
	if e.CommunityID != "" {
		return fmt.Sprintf("%s: %s (community=%s): %v", e.Code, e.Op, e.CommunityID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

// Unwrap exposes the cause so errors.Is(err, platform.ErrPermission) works.
func (e *AttributionError) Unwrap() error {
	return e.Err
}

func codeOf(err error) (ErrorCode, bool) {
	var ae *AttributionError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// IsPermissionError reports whether err is a permission failure.
func IsPermissionError(err error) bool {
	code, ok := codeOf(err)
	if ok {
		return code == ErrCodePermissionDenied
	}
	return platform.IsPermission(err)
}

// IsUnavailableError reports whether err is a transient fetch failure.
func IsUnavailableError(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeUnavailable
}

// IsStorageError reports whether err is a baseline store failure.
func IsStorageError(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeStorage
}

// fetchError classifies a live fetch failure.
func fetchError(communityID string, err error) *AttributionError {
	code := ErrCodeUnavailable
	if platform.IsPermission(err) {
		code = ErrCodePermissionDenied
	}
	return &AttributionError{Code: code, CommunityID: communityID, Op: "list invites", Err: err}
}

func storageError(communityID, op string, err error) *AttributionError {
	return &AttributionError{Code: ErrCodeStorage, CommunityID: communityID, Op: op, Err: err}
}
