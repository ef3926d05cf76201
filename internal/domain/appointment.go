package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Appointment is one booked dose. Person and vaccine are referenced by key.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	CenterCode string    `bun:"center_code,notnull"`
	Document   string    `bun:"document,notnull"`
	Vaccine    string    `bun:"vaccine_name,notnull"`
	Timestamp  time.Time `bun:"scheduled_at,notnull"`
	// Reserved is set when the appointment consumed a dose from the stock calendar.
	Reserved  bool      `bun:"reserved,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

// Date is the calendar day of the appointment.
func (a Appointment) Date() Date {
	return DateOf(a.Timestamp)
}

// SeriesTimestamps returns the timestamps of a full course of v starting at start:
// RequiredDoses entries, each IntervalDays after the previous one.
func SeriesTimestamps(v Vaccine, start time.Time) []time.Time {
	doses := v.RequiredDoses
	if doses < 1 {
		doses = 1
	}
	out := make([]time.Time, 0, doses)
	ts := start
	for i := 0; i < doses; i++ {
		if i > 0 {
			ts = ts.AddDate(0, 0, v.IntervalDays)
		}
		out = append(out, ts)
	}
	return out
}
