package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrGroupNameRequired   = errors.New("group conversation requires a name")
	ErrDirectPairInvalid   = errors.New("direct conversation requires two distinct users")
	ErrParticipantRequired = errors.New("conversation requires at least one other participant")
)

// TransientError marks a failure worth exactly one more attempt:
// dropped connections, serialization failures and deadlocks.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

func wrapError(err error) error {
	if err == nil || IsTransient(err) {
		return err
	}
	if isTransientCause(err) {
		return &TransientError{Err: err}
	}
	return err
}

func isTransientCause(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return true
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		}
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
