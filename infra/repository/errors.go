package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/amirasaad/securebank/pkg/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// MapGormErrorToDomain converts GORM and driver errors to domain errors.
// This keeps infrastructure concerns (database errors) within the infrastructure layer.
// Timeout, availability and conflict errors keep the original error in the
// chain so it can still be logged.
func MapGormErrorToDomain(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAlreadyExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return wrapAs(domain.ErrTimeout, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return wrapAs(domain.ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return domain.ErrAlreadyExists
		// serialization_failure, deadlock_detected, lock_not_available
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "55P03":
			return wrapAs(domain.ErrConflict, err)
		// query_canceled, raised by statement_timeout
		case pgErr.Code == "57014":
			return wrapAs(domain.ErrTimeout, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return wrapAs(domain.ErrUnavailable, err)
		}
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return wrapAs(domain.ErrConflict, err)
		case sqlite3.ErrConstraint:
			if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
				return domain.ErrAlreadyExists
			}
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return wrapAs(domain.ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return wrapAs(domain.ErrTimeout, err)
		}
		return wrapAs(domain.ErrUnavailable, err)
	}

	// Return original error if no mapping found
	return err
}

// WrapError wraps a GORM operation and automatically maps errors.
//
// Usage:
//
//	err := WrapError(func() error {
//	    return r.db.WithContext(ctx).Create(user).Error
//	})
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}

func wrapAs(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
