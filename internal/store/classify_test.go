package store

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeNetErr struct{}

func (fakeNetErr) Error() string   { return "fake net error" }
func (fakeNetErr) Timeout() bool   { return true }
func (fakeNetErr) Temporary() bool { return true }

var _ net.Error = fakeNetErr{}

func TestClassifyNetError(t *testing.T) {
	if got := classify(fakeNetErr{}); got != KindTransient {
		t.Errorf("classify(net.Error) = %v, want KindTransient", got)
	}
}

func TestClassifyContextErrors(t *testing.T) {
	if got := classify(context.DeadlineExceeded); got != KindTransient {
		t.Errorf("classify(DeadlineExceeded) = %v, want KindTransient", got)
	}
	if got := classify(context.Canceled); got != KindTransient {
		t.Errorf("classify(Canceled) = %v, want KindTransient", got)
	}
}

func TestClassifyPgSerializationFailure(t *testing.T) {
	err := &pgconn.PgError{Code: "40001"}
	if got := classify(err); got != KindTransient {
		t.Errorf("classify(40001) = %v, want KindTransient", got)
	}
}

func TestClassifyPgConnectionException(t *testing.T) {
	err := &pgconn.PgError{Code: "08006"}
	if got := classify(err); got != KindTransient {
		t.Errorf("classify(08006) = %v, want KindTransient", got)
	}
}

func TestClassifyPgConstraintViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505"}
	if got := classify(err); got != KindQuery {
		t.Errorf("classify(23505) = %v, want KindQuery", got)
	}
}

func TestClassifyNoRows(t *testing.T) {
	if got := classify(pgx.ErrNoRows); got != KindNotFound {
		t.Errorf("classify(ErrNoRows) = %v, want KindNotFound", got)
	}
}

func TestIsTransientUnwraps(t *testing.T) {
	wrapped := newError(KindTransient, "op", errors.New("boom"))
	if !IsTransient(wrapped) {
		t.Error("IsTransient should report true for a KindTransient *Error")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("IsTransient should report false for an unrelated error")
	}
}

func TestIsNotFoundUnwraps(t *testing.T) {
	wrapped := newError(KindNotFound, "op", pgx.ErrNoRows)
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should report true for a KindNotFound *Error")
	}
}
