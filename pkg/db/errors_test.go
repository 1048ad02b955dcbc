package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolationPgError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_order_number"}
	wrapped := fmt.Errorf("create order: %w", pgErr)

	if !IsUniqueViolation(wrapped, "idx_orders_order_number") {
		t.Fatal("expected match on constraint name")
	}
	if IsUniqueViolation(wrapped, "idx_mpesa_transactions_receipt") {
		t.Fatal("expected mismatch for a different constraint")
	}
	if !IsUniqueViolation(wrapped, "") {
		t.Fatal("expected match when no constraint is required")
	}
}

func TestIsUniqueViolationNonUniqueCode(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", ConstraintName: "fk_order_items_order"}
	if IsUniqueViolation(pgErr, "") {
		t.Fatal("foreign key violation should not classify as unique")
	}
}

func TestIsUniqueViolationMessageFallback(t *testing.T) {
	sqliteErr := errors.New("UNIQUE constraint failed: orders.order_number")
	if !IsUniqueViolation(sqliteErr, "") {
		t.Fatal("expected sqlite unique message to match")
	}

	named := errors.New(`duplicate key value violates unique constraint "idx_orders_order_number"`)
	if !IsUniqueViolation(named, "idx_orders_order_number") {
		t.Fatal("expected constraint name in message to match")
	}

	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error should never match")
	}
}
