package specql

import "errors"

// The toolkit classifies failures into three families. None of them are
// retried internally: each one signals a programming or mapping error that
// has to be fixed at the call site.
var (
	// ErrInvalidArgument reports a null or empty required input, such as a
	// nil predicate passed to a builder or an unrecognized provider name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidOperation reports a specification that is structurally
	// inconsistent for the requested operation: missing table bindings, an
	// update with no property updates, a type with no usable constructor.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotSupported reports an expression shape the translator does not
	// implement, such as a join reference inside a SET clause or a
	// membership test over a collection that cannot be resolved at compile
	// time.
	ErrNotSupported = errors.New("not supported")
)
