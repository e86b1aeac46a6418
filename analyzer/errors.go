package analyzer

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies analysis failures
type Kind string

const (
	KindValidation         Kind = "validation"
	KindConfiguration      Kind = "configuration"
	KindUpstream           Kind = "upstream"
	KindMalformedResponse  Kind = "malformed_response"
	KindIncompleteResponse Kind = "incomplete_response"
	KindInternal           Kind = "internal"
)

// Error is a classified analysis failure. Msg is safe to log; Detail holds
// diagnostic context such as the offending JSON and is never shown to users.
type Error struct {
	Kind   Kind
	Msg    string
	Detail string
	// Public overrides the default user message for the kind
	Public string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrUpstream) works
// for every upstream failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConfiguration      = &Error{Kind: KindConfiguration}
	ErrUpstream           = &Error{Kind: KindUpstream}
	ErrMalformedResponse  = &Error{Kind: KindMalformedResponse}
	ErrIncompleteResponse = &Error{Kind: KindIncompleteResponse}
)

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

var userMessages = map[Kind]string{
	KindValidation:         "Please enter a valid URL (e.g. https://example.com).",
	KindConfiguration:      "API key is missing or invalid.",
	KindUpstream:           "Failed to analyze the URL. Please try again.",
	KindMalformedResponse:  "AI response was malformed. Please try again.",
	KindIncompleteResponse: "Incomplete data received from AI. Please try again.",
	KindInternal:           "An unexpected error occurred.",
}

// KindOf returns the classification of err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserMessage maps err to a short message that can be shown to end users
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Public != "" {
			return e.Public
		}
		return userMessages[e.Kind]
	}
	return userMessages[KindInternal]
}

// StatusCode maps err to the HTTP status returned by the API
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConfiguration:
		return http.StatusServiceUnavailable
	case KindUpstream, KindMalformedResponse, KindIncompleteResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
