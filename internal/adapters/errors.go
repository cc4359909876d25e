package adapters

import (
	"fmt"
)

// BidderErrorCode classifies adapter and transport failures
type BidderErrorCode string

const (
	ErrorCodeMarshal    BidderErrorCode = "MARSHAL_ERROR"
	ErrorCodeBadRequest BidderErrorCode = "BAD_REQUEST"
	ErrorCodeBadStatus  BidderErrorCode = "BAD_STATUS"
	ErrorCodeParse      BidderErrorCode = "PARSE_ERROR"
	ErrorCodeTimeout    BidderErrorCode = "TIMEOUT"
	ErrorCodeConnection BidderErrorCode = "CONNECTION_ERROR"
)

// BidderError represents a standardized adapter error
type BidderError struct {
	BidderCode string
	Code       BidderErrorCode
	Message    string
	Cause      error
}

func (e *BidderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Code, e.BidderCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.BidderCode, e.Message)
}

func (e *BidderError) Unwrap() error {
	return e.Cause
}

// NewMarshalError creates a standardized marshal error
func NewMarshalError(bidderCode string, cause error) *BidderError {
	return &BidderError{
		BidderCode: bidderCode,
		Code:       ErrorCodeMarshal,
		Message:    "failed to marshal request",
		Cause:      cause,
	}
}

// NewBadRequestError creates a standardized bad request error
func NewBadRequestError(bidderCode string, responseBody string) *BidderError {
	return &BidderError{
		BidderCode: bidderCode,
		Code:       ErrorCodeBadRequest,
		Message:    fmt.Sprintf("bad request: %s", responseBody),
	}
}

// NewBadStatusError creates a standardized status code error
func NewBadStatusError(bidderCode string, statusCode int) *BidderError {
	return &BidderError{
		BidderCode: bidderCode,
		Code:       ErrorCodeBadStatus,
		Message:    fmt.Sprintf("unexpected status: %d", statusCode),
	}
}

// NewParseError creates a standardized parse error
func NewParseError(bidderCode string, cause error) *BidderError {
	return &BidderError{
		BidderCode: bidderCode,
		Code:       ErrorCodeParse,
		Message:    "failed to parse response",
		Cause:      cause,
	}
}

// NewTimeoutError creates a standardized timeout error
func NewTimeoutError(bidderCode string, cause error) *BidderError {
	return &BidderError{
		BidderCode: bidderCode,
		Code:       ErrorCodeTimeout,
		Message:    "request timed out",
		Cause:      cause,
	}
}

// NewConnectionError creates a standardized transport error
func NewConnectionError(bidderCode string, cause error) *BidderError {
	return &BidderError{
		BidderCode: bidderCode,
		Code:       ErrorCodeConnection,
		Message:    "request failed",
		Cause:      cause,
	}
}

// SlotDropError is implemented by errors that keep slots off the wire
type SlotDropError interface {
	error
	DroppedSlots() int
	DropReason() string
}
