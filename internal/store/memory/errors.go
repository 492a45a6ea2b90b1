package memory

import (
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/wolfeidau/organizehub/internal/store"
)

// ConstraintError is a constraint violation raised by the in-memory database,
// carrying the SQLSTATE a real database would report.
type ConstraintError struct {
	Code       string
	Constraint string
	Message    string
}

func (e *ConstraintError) Error() string {
	return e.Message
}

func (e *ConstraintError) Is(target error) bool {
	switch target {
	case store.ErrConflict:
		return e.Code == pgerrcode.UniqueViolation
	case store.ErrReference:
		return e.Code == pgerrcode.ForeignKeyViolation
	}
	return false
}

func uniqueViolation(table, column string) error {
	constraint := fmt.Sprintf("%s_%s_key", table, column)
	return &ConstraintError{
		Code:       pgerrcode.UniqueViolation,
		Constraint: constraint,
		Message:    fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
	}
}

func foreignKeyViolation(table string, ref Reference) error {
	constraint := fmt.Sprintf("%s_%s_fkey", table, ref.Column)
	return &ConstraintError{
		Code:       pgerrcode.ForeignKeyViolation,
		Constraint: constraint,
		Message:    fmt.Sprintf("insert or update on table %q violates foreign key constraint %q", table, constraint),
	}
}

func restrictViolation(table, referencing string, ref Reference) error {
	constraint := fmt.Sprintf("%s_%s_fkey", referencing, ref.Column)
	return &ConstraintError{
		Code:       pgerrcode.ForeignKeyViolation,
		Constraint: constraint,
		Message: fmt.Sprintf("update or delete on table %q violates foreign key constraint %q on table %q",
			table, constraint, referencing),
	}
}

func noRows() error {
	return fmt.Errorf("JSON object requested, multiple (or no) rows returned: %w", store.ErrNoRows)
}
