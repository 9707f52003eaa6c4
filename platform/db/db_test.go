package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Fatal("expected wrapped 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation reported as unique")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error reported as unique")
	}
}

func TestAfterCommitWithoutTxRunsImmediately(t *testing.T) {
	ctx := context.Background()
	if InTx(ctx) {
		t.Fatal("background context reported as in tx")
	}
	ran := false
	AfterCommit(ctx, func(context.Context) { ran = true })
	if !ran {
		t.Fatal("hook did not run")
	}
}

func TestAfterCommitDefersInsideTx(t *testing.T) {
	state := &txState{}
	ctx := context.WithValue(context.Background(), txKey{}, state)

	ran := false
	AfterCommit(ctx, func(context.Context) { ran = true })
	if ran {
		t.Fatal("hook ran before commit")
	}
	if len(state.after) != 1 {
		t.Fatalf("expected 1 queued hook, got %d", len(state.after))
	}
}
