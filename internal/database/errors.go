package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// ConstraintKind identifies which class of integrity rule a write violated.
type ConstraintKind int

const (
	NoConstraint ConstraintKind = iota
	UniqueViolation
	ForeignKeyViolation
	// ExclusionViolation covers the budget period guard: a PostgreSQL
	// exclusion constraint or a SQLite trigger abort.
	ExclusionViolation
	CheckViolation
)

// Constraint is the classified form of a store error.
type Constraint struct {
	Kind ConstraintKind
	// Name is the constraint name on PostgreSQL and the error text on SQLite.
	Name string
}

// ClassifyConstraint inspects err for a constraint violation raised by either
// supported driver. Errors that are not constraint violations yield
// NoConstraint.
func ClassifyConstraint(err error) Constraint {
	if err == nil {
		return Constraint{}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return Constraint{Kind: UniqueViolation, Name: pgErr.ConstraintName}
		case "23503":
			return Constraint{Kind: ForeignKeyViolation, Name: pgErr.ConstraintName}
		case "23P01":
			return Constraint{Kind: ExclusionViolation, Name: pgErr.ConstraintName}
		case "23514":
			return Constraint{Kind: CheckViolation, Name: pgErr.ConstraintName}
		}
		return Constraint{}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return Constraint{Kind: UniqueViolation, Name: liteErr.Error()}
		case sqlite3.ErrConstraintForeignKey:
			return Constraint{Kind: ForeignKeyViolation, Name: liteErr.Error()}
		case sqlite3.ErrConstraintTrigger:
			// ON DELETE RESTRICT is enforced through the trigger machinery and
			// shares its extended code with the budget overlap triggers.
			return Constraint{Kind: classifySQLiteTrigger(liteErr.Error()), Name: liteErr.Error()}
		case sqlite3.ErrConstraintCheck:
			return Constraint{Kind: CheckViolation, Name: liteErr.Error()}
		}
		return Constraint{}
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Constraint{Kind: UniqueViolation}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Constraint{Kind: ForeignKeyViolation}
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return Constraint{Kind: CheckViolation}
	}
	return Constraint{}
}

const (
	sqliteForeignKeyMessage = "FOREIGN KEY constraint failed"
	sqliteOverlapMessage    = "budget period overlaps"
)

func classifySQLiteTrigger(msg string) ConstraintKind {
	switch {
	case strings.Contains(msg, sqliteForeignKeyMessage):
		return ForeignKeyViolation
	case strings.Contains(msg, sqliteOverlapMessage):
		return ExclusionViolation
	}
	return NoConstraint
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return ClassifyConstraint(err).Kind == UniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return ClassifyConstraint(err).Kind == ForeignKeyViolation
}
