package array

import "fmt"

// ErrorKind classifies receiver failures.
type ErrorKind int

// Kinds of receiver failures.
const (
	// EmptyReceiver means the buffer has not been configured yet.
	EmptyReceiver ErrorKind = iota + 1

	// AddressOutOfRange means a transfer was attempted although the
	// capacity check would have failed.
	AddressOutOfRange

	// MalformedHeader means a dynamic edge received a header that does not
	// describe a shape.
	MalformedHeader

	// InvalidSpec means a port declared a pattern or tiling that cannot be
	// used on its edge.
	InvalidSpec
)

func (k ErrorKind) String() string {
	switch k {
	case EmptyReceiver:
		return "empty receiver"
	case AddressOutOfRange:
		return "address out of range"
	case MalformedHeader:
		return "malformed header"
	case InvalidSpec:
		return "invalid spec"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by edges and receivers. Where names the port.
type Error struct {
	Kind     ErrorKind
	Where    string
	Reason   string
	Position int
	Address  int
	Length   int
}

// Sentinel errors for errors.Is. They match any Error of the same kind.
var (
	ErrEmptyReceiver     = &Error{Kind: EmptyReceiver}
	ErrAddressOutOfRange = &Error{Kind: AddressOutOfRange}
	ErrMalformedHeader   = &Error{Kind: MalformedHeader}
	ErrInvalidSpec       = &Error{Kind: InvalidSpec}
)

func (e *Error) Error() string {
	if e.Kind == AddressOutOfRange {
		return fmt.Sprintf("%s: %s: position %d maps to address %d, "+
			"buffer length is %d", e.Where, e.Kind, e.Position, e.Address,
			e.Length)
	}

	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Where, e.Kind)
	}

	return fmt.Sprintf("%s: %s: %s", e.Where, e.Kind, e.Reason)
}

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && t.Where == ""
}

func newError(kind ErrorKind, where, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Where:  where,
		Reason: fmt.Sprintf(format, args...),
	}
}

func outOfRange(where string, position, address, length int) *Error {
	return &Error{
		Kind:     AddressOutOfRange,
		Where:    where,
		Position: position,
		Address:  address,
		Length:   length,
	}
}
