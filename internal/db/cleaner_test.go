package db

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCleanAbandonedSignups(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(deleteAbandonedSignups)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := CleanAbandonedSignups(context.Background(), dbMock, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("removed = %d; want 3", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStartSignupCleaner_ErrorLogged(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	mock.ExpectExec("DELETE FROM identities").
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("db fail"))

	core, logs := observer.New(zapcore.ErrorLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartSignupCleaner(ctx, dbMock, 10*time.Millisecond, time.Hour, zap.New(core))

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("failed to clean abandoned sign-ups").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected error to be logged")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}

func TestStartSignupCleaner_CancelBeforeTicker(t *testing.T) {
	dbMock, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	defer dbMock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	StartSignupCleaner(ctx, dbMock, 100*time.Millisecond, time.Hour, zap.NewNop())
	cancel()

	time.Sleep(50 * time.Millisecond)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected sql calls: %v", err)
	}
}
