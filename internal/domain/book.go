package domain

import (
	"slices"
	"time"
)

// AppointmentBook keeps a center's appointments ordered by (timestamp, document).
// It is not safe for concurrent use.
type AppointmentBook struct {
	items []Appointment
}

func NewAppointmentBook() *AppointmentBook {
	return &AppointmentBook{}
}

func (b *AppointmentBook) Len() int {
	return len(b.items)
}

// At returns the appointment at index i.
func (b *AppointmentBook) At(i int) Appointment {
	return b.items[i]
}

// All returns a copy of the book in order.
func (b *AppointmentBook) All() []Appointment {
	return slices.Clone(b.items)
}

// Insert places appt before the first entry with a later timestamp, or with the same
// timestamp and a document that sorts at or after appt's. It returns the index used.
func (b *AppointmentBook) Insert(appt Appointment) int {
	idx := b.FindByTimestamp(appt.Timestamp, 0)
	if idx < 0 {
		b.items = append(b.items, appt)
		return len(b.items) - 1
	}
	for idx < len(b.items) &&
		b.items[idx].Timestamp.Equal(appt.Timestamp) &&
		b.items[idx].Document < appt.Document {
		idx++
	}
	b.items = slices.Insert(b.items, idx, appt)
	return idx
}

// Remove deletes the entry for document at timestamp. The second result is false when
// nothing matched.
func (b *AppointmentBook) Remove(timestamp time.Time, document string) (Appointment, bool) {
	for i := range b.items {
		if b.items[i].Timestamp.Equal(timestamp) && b.items[i].Document == document {
			removed := b.items[i]
			b.items = slices.Delete(b.items, i, i+1)
			return removed, true
		}
	}
	return Appointment{}, false
}

// FindByPerson returns the first index at or after from referencing document, or -1.
// Repeated calls with the previous result plus one walk a person's appointments in
// chronological order.
func (b *AppointmentBook) FindByPerson(document string, from int) int {
	if from < 0 {
		return -1
	}
	for i := from; i < len(b.items); i++ {
		if b.items[i].Document == document {
			return i
		}
	}
	return -1
}

// FindByTimestamp returns the first index at or after from whose timestamp is not
// before timestamp, or -1.
func (b *AppointmentBook) FindByTimestamp(timestamp time.Time, from int) int {
	if from < 0 {
		return -1
	}
	for i := from; i < len(b.items); i++ {
		if !b.items[i].Timestamp.Before(timestamp) {
			return i
		}
	}
	return -1
}

// ForPerson collects every appointment of document in chronological order.
func (b *AppointmentBook) ForPerson(document string) []Appointment {
	var out []Appointment
	for i := b.FindByPerson(document, 0); i >= 0; i = b.FindByPerson(document, i+1) {
		out = append(out, b.items[i])
	}
	return out
}

// HealthCenter owns the stock calendar and appointment book of one center.
type HealthCenter struct {
	Code         string
	Stock        *StockCalendar
	Appointments *AppointmentBook
}

func NewHealthCenter(code string) *HealthCenter {
	return &HealthCenter{
		Code:         code,
		Stock:        NewStockCalendar(),
		Appointments: NewAppointmentBook(),
	}
}
