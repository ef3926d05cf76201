package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"vaxbook/internal/domain"
	"vaxbook/internal/store"
)

func TestMapError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name         string
		err          error
		wantConflict bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "persons_pkey"}, wantConflict: true},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), wantConflict: true},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}},
		{name: "plain error", err: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if errors.Is(got, store.ErrConflict) != tt.wantConflict {
				t.Fatalf("errors.Is(%v, ErrConflict) = %v, want %v", got, !tt.wantConflict, tt.wantConflict)
			}
			if !tt.wantConflict && got != tt.err {
				t.Fatalf("mapError(%v) = %v, want the error unchanged", tt.err, got)
			}
		})
	}
}

func TestSaveAppointments_EmptyIsNoop(t *testing.T) {
	r := NewRepository(nil)
	if err := r.SaveAppointments(context.Background(), nil); err != nil {
		t.Fatalf("SaveAppointments error: %v", err)
	}
}

func TestSaveAppointments_RejectsMixedCenters(t *testing.T) {
	r := NewRepository(nil)
	ts := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	err := r.SaveAppointments(context.Background(), []domain.Appointment{
		{CenterCode: "C1", Document: "D", Vaccine: "V", Timestamp: ts},
		{CenterCode: "C2", Document: "D", Vaccine: "V", Timestamp: ts.AddDate(0, 0, 21)},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
