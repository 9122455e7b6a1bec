package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel markers used to classify stage failures. Wrap tags every error
// produced inside the pipeline with exactly one of these.
var (
	ErrValidation    = errors.New("validation error")
	ErrPlaylist      = errors.New("playlist not supported")
	ErrTooLong       = errors.New("video too long")
	ErrUnresolvable  = errors.New("metadata unresolvable")
	ErrExtraction    = errors.New("extraction failed")
	ErrEncoder       = errors.New("encoder error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExtraction
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a tagged error to the status code the API returns.
// Caller mistakes and upstream policy violations are 400s, exhausted
// extraction strategies are 503 (the caller may resubmit later), and
// everything else is an internal error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrPlaylist),
		errors.Is(err, ErrTooLong),
		errors.Is(err, ErrUnresolvable):
		return http.StatusBadRequest
	case errors.Is(err, ErrExtraction):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage translates a tagged error into the short, actionable message
// surfaced to callers. Diagnostic detail never leaks through here.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPlaylist):
		return "Playlist links are not supported. Paste a link to a single video."
	case errors.Is(err, ErrTooLong):
		return "Video is longer than 10 minutes. For long-form content use a dedicated downloader instead."
	case errors.Is(err, ErrUnresolvable):
		return "Could not read video details. Check the link and try again."
	case errors.Is(err, ErrExtraction):
		return "Audio extraction failed. Please try again later."
	case errors.Is(err, ErrValidation):
		if msg := validationMessage(err); msg != "" {
			return msg
		}
		return "Invalid request."
	default:
		return "Internal error while preparing the download."
	}
}

// validationMessage extracts the human-readable tail of a validation error.
// Wrap produces "validation error: stage: operation: message"; the message
// segment is already written for end users.
func validationMessage(err error) string {
	text := err.Error()
	if idx := strings.LastIndex(text, ": "); idx >= 0 && idx+2 < len(text) {
		return strings.ToUpper(text[idx+2:][:1]) + text[idx+2:][1:]
	}
	return ""
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
