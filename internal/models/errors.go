package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxErrorBody is the number of runes of a backend body kept in error text.
const maxErrorBody = 200

var (
	// ErrEmptyStudent is returned when the load action runs without a student.
	ErrEmptyStudent = errors.New("no student selected")
	// ErrEmptySelection is returned when an export is submitted with no occurrence checked.
	ErrEmptySelection = errors.New("no occurrence selected")
	// ErrListLocked is returned when a list that already produced a PDF is changed.
	ErrListLocked = errors.New("occurrence list is locked")
	// ErrEmptyPayload is returned when the statistics endpoint answers with a JSON null.
	ErrEmptyPayload = errors.New("empty statistics payload")
)

// FetchError covers a request that never produced a usable response:
// transport failures, non-2xx answers on read endpoints and undecodable bodies.
type FetchError struct {
	Op  string
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx answer from the backend.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	body := strings.TrimSpace(e.Body)
	if utf8.RuneCountInString(body) > maxErrorBody {
		body = string([]rune(body)[:maxErrorBody]) + "..."
	}
	if body == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, body)
}

// ValidationError is a user-facing message for an action that was refused
// before any request was sent.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IntegrityError reports page anchors missing from a template at startup.
type IntegrityError struct {
	Page    string
	Missing []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("page %s is missing anchors: %s", e.Page, strings.Join(e.Missing, ", "))
}

// StatusCode extracts the HTTP status of a ServerError anywhere in the chain.
// Returns 0 when err did not come from a backend response.
func StatusCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
