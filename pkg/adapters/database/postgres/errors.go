package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/usersapi/pkg/ports"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Classify maps a PostgreSQL error onto the storage error kinds in ports.
// The original error stays in the chain. Unrecognized errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.UndefinedTable:
		return fmt.Errorf("%w: %w", ports.ErrUndefinedTable, err)
	case pgErr.Code == pgerrcode.UniqueViolation && strings.Contains(pgErr.ConstraintName, "email"):
		return fmt.Errorf("%w: %w", ports.ErrDuplicateEmail, err)
	case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
		return fmt.Errorf("%w: %w", ports.ErrConstraintViolation, err)
	}

	return err
}
