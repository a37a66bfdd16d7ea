package scope

import (
	"errors"
	"fmt"
)

// Sentinel kinds; test with errors.Is.
var (
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrUndeclaredName       = errors.New("undeclared name")
	ErrDuplicateFunction    = errors.New("duplicate function")
	ErrUnknownFunction      = errors.New("unknown function")
)

// Error is a symbol-table failure for a specific name.
type Error struct {
	Kind error
	Name string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrDuplicateDeclaration:
		return fmt.Sprintf("variable '%s' already declared in this scope", e.Name)
	case ErrUndeclaredName:
		return fmt.Sprintf("variable '%s' not declared", e.Name)
	case ErrDuplicateFunction:
		return fmt.Sprintf("function '%s' already declared", e.Name)
	case ErrUnknownFunction:
		return fmt.Sprintf("function '%s' not declared", e.Name)
	default:
		return fmt.Sprintf("%v: %s", e.Kind, e.Name)
	}
}

func (e *Error) Unwrap() error { return e.Kind }
