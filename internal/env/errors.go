package env

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each typed error below matches exactly one of them.
var (
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrImmutableAssignment  = errors.New("assignment to immutable variable")
	ErrUndeclaredVariable   = errors.New("undeclared variable")
)

// DuplicateDeclarationError is returned when a variable is created twice in
// the same scope.
type DuplicateDeclarationError struct {
	Name     string
	Function Signature // current function at the time of the declaration
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("variable '%s' was declared multiple times %s", e.Name, describeContext(e.Function))
}

func (e *DuplicateDeclarationError) Is(target error) bool { return target == ErrDuplicateDeclaration }

// ImmutableAssignmentError is returned when assigning to a val binding.
type ImmutableAssignmentError struct {
	Name string
}

func (e *ImmutableAssignmentError) Error() string {
	return fmt.Sprintf("variable '%s' cannot be assigned to a value because it is immutable", e.Name)
}

func (e *ImmutableAssignmentError) Is(target error) bool { return target == ErrImmutableAssignment }

// UndeclaredVariableError is returned when assigning to a name that no block
// scope declares. Globals never satisfy an assignment.
type UndeclaredVariableError struct {
	Name     string
	Function Signature
}

func (e *UndeclaredVariableError) Error() string {
	return fmt.Sprintf("variable '%s' was never declared %s", e.Name, describeContext(e.Function))
}

func (e *UndeclaredVariableError) Is(target error) bool { return target == ErrUndeclaredVariable }

func describeContext(fn Signature) string {
	if fn.IsZero() {
		return "at top level"
	}
	return fmt.Sprintf("in function '%s'", fn)
}
