package widget

import "fmt"

// Fatal error codes. These abort the commit deterministically: the same
// tree shape produces the same code and detail, byte for byte.
const (
	CodeDupKey     = "dup-key"
	CodeSlotOrder  = "slot-order"
	CodeMixedModes = "mixed-modes"
)

// FatalError is a structural misuse of the runtime: duplicate sibling
// keys, hook slots acquired out of order, or mixing the single-render and
// route table modes. Fatal errors are not recoverable within the commit
// that raised them; the previous committed tree stays intact.
type FatalError struct {
	Code   string
	Detail string
}

func (e *FatalError) Error() string {
	return "fatal [" + e.Code + "]: " + e.Detail
}

// dupKeyError builds the duplicate key fatal. first and second are the
// conflicting child indices under the parent, in encounter order.
func dupKeyError(key, parentDesc string, first, second int) *FatalError {
	return &FatalError{
		Code:   CodeDupKey,
		Detail: fmt.Sprintf("duplicate key %q in %s: children %d and %d", key, parentDesc, first, second),
	}
}

func slotOrderError(detail string) *FatalError {
	return &FatalError{Code: CodeSlotOrder, Detail: detail}
}
