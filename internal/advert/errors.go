package advert

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every way a datagram can fail to decode.
// Any failure is scoped to the single datagram being decoded; the next
// datagram starts from a clean state.
var (
	// ErrTruncated means the buffer ran out before an expected field
	// could be read.
	ErrTruncated = errors.New("truncated message")

	// ErrProtocolViolation means a structurally required phrase (such as
	// NEST at the start of the preamble section) was missing or out of
	// place.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrInvalidAdvertisementType means the advertisement type field
	// carried a value outside the known set 1..4.
	ErrInvalidAdvertisementType = errors.New("invalid advertisement type")

	// ErrUnknownOpcode means an opcode outside the known set appeared
	// inside a section whose structure is otherwise understood.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrUnknownDataType means a phrase carried a data-type tag the
	// decoder has no operand shape for.
	ErrUnknownDataType = errors.New("unknown data type")
)

// DecodeError wraps one of the sentinel errors with the buffer offset at
// which decoding failed and a human-readable detail.
type DecodeError struct {
	Err    error
	Offset int
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(kind error, offset int, format string, args ...interface{}) *DecodeError {
	return &DecodeError{
		Err:    kind,
		Offset: offset,
		Detail: fmt.Sprintf(format, args...),
	}
}

// ErrorKind maps a decode failure to a stable label suitable for metrics
// and log fields. Unrecognized errors map to "other".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, ErrInvalidAdvertisementType):
		return "invalid_advertisement_type"
	case errors.Is(err, ErrUnknownOpcode):
		return "unknown_opcode"
	case errors.Is(err, ErrUnknownDataType):
		return "unknown_data_type"
	default:
		return "other"
	}
}

// Warning records a protocol assumption violated by a message that was
// still decodable, such as a bad header magic or a non-zero padding
// block. Warnings never abort decoding.
type Warning struct {
	Offset  int    `json:"offset"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("offset %d: %s", w.Offset, w.Message)
}
