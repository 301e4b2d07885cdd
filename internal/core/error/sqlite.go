package errx

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/mattn/go-sqlite3"
)

// WrapSQLite maps SQLite errors to AppError. Busy/locked databases are reported
// as unavailable so callers can tell contention from corruption.
func WrapSQLite(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return New(err, http.StatusNotFound, SQLiteErrorMessage)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return New(err, http.StatusServiceUnavailable, SQLiteErrorMessage)
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return New(err, http.StatusInternalServerError, SQLiteErrorMessage)
		}
	}

	return New(err, http.StatusInternalServerError, SQLiteErrorMessage)
}
