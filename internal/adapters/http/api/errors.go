package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrBackpressure    = errors.New("backpressure")
	ErrUpstream        = errors.New("upstream unavailable")
	ErrInternal        = errors.New("internal error")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Kind is an API error carrying the failing operation and its sentinel kind.
// The message is the cause when present, so clients see what went wrong.
type Kind struct {
	Op   string
	Kind error
	Err  error
}

func (e *Kind) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// Is matches the sentinel kind.
func (e *Kind) Is(target error) bool { return target == e.Kind }

func (e *Kind) Unwrap() error { return e.Err }

// NewKind returns an error of kind for op.
func NewKind(op string, kind error) error {
	return &Kind{Op: op, Kind: kind}
}

// WrapKind returns an error of kind for op caused by err.
func WrapKind(op string, kind, err error) error {
	return &Kind{Op: op, Kind: kind, Err: err}
}

// Wrap marks err as an internal failure of op.
func Wrap(op string, err error) error {
	return &Kind{Op: op, Kind: ErrInternal, Err: err}
}

// badRequest is a bad-request Kind with a client-facing message.
func badRequest(op, msg string) error {
	return WrapKind(op, ErrBadRequest, errors.New(msg))
}
