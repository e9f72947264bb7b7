// Package fault carries domain errors tagged with one of four kinds so the
// HTTP layer can map them to status codes with errors.As while callers keep
// matching concrete sentinels with errors.Is.
package fault

type Kind int

const (
	Validation Kind = iota + 1
	NotFound
	State
	Contention
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case State:
		return "state"
	case Contention:
		return "contention"
	default:
		return "unknown"
	}
}

// Error is a sentinel-style domain error. Packages declare them as package
// vars and return them directly, so identity comparison via errors.Is works.
type Error struct {
	kind Kind
	msg  string
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

// KindOf reports the kind of err, or 0 if err carries no fault.
func KindOf(err error) Kind {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			return fe.kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0
		}
		err = u.Unwrap()
	}
	return 0
}
