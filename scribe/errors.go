package scribe

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/status"
)

// Kind classifies failures for the HTTP mapping.
type Kind int

const (
	KindUnhandled Kind = iota
	KindClientInput
	KindTooLarge
	KindUpstream
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindClientInput:
		return "client_input"
	case KindTooLarge:
		return "too_large"
	case KindUpstream:
		return "upstream"
	case KindStorage:
		return "storage"
	default:
		return "unhandled"
	}
}

// Error is the failure variant of a processing step.
type Error struct {
	Kind Kind
	Op   string
	// Message is the client-facing error text for client input errors.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func clientError(op, message string, err error) *Error {
	return &Error{Kind: KindClientInput, Op: op, Message: message, Err: err}
}

func upstreamError(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

func storageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

func unhandledError(op string, err error) *Error {
	return &Error{Kind: KindUnhandled, Op: op, Err: err}
}

const (
	msgNoAudio         = "No audio file uploaded"
	msgTooManyFiles    = "Only one audio file may be uploaded"
	msgTooLarge        = "Audio file too large"
	msgBadFormat       = "Unsupported audio format"
	msgBadURI          = "Invalid recording URI"
	msgProcessing      = "Error processing audio"
	msgListing         = "Error listing recordings"
	msgServer          = "Server error"
	NoSpeechMessage    = "No speech detected"
	ServerWorkingReply = "Server is working"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// toResponse maps any error to a status code and body. Errors that are not
// an *Error are treated as unhandled.
func toResponse(err error) (int, ErrorResponse) {
	var e *Error
	if !errors.As(err, &e) {
		e = unhandledError("unknown", err)
	}

	details := ""
	if e.Err != nil {
		details = e.Err.Error()
	}

	switch e.Kind {
	case KindClientInput:
		return http.StatusBadRequest, ErrorResponse{Error: e.Message, Details: details}
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgTooLarge}
	case KindUpstream, KindStorage:
		return http.StatusInternalServerError, ErrorResponse{Error: msgProcessing, Details: details}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: msgServer, Details: details}
	}
}

// grpcCode reports the gRPC status code of an upstream failure for logging.
func grpcCode(err error) string {
	inner := errors.Unwrap(err)
	if inner == nil {
		return "none"
	}
	st, ok := status.FromError(inner)
	if !ok {
		return "none"
	}
	return st.Code().String()
}
