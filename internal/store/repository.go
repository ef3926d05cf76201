package store

import (
	"context"

	"github.com/google/uuid"

	"vaxbook/internal/domain"
)

// Dataset is everything needed to rebuild the scheduling aggregate.
// Lots are in arrival order so vaccines re-register in the same order.
type Dataset struct {
	Persons      []domain.Person
	Vaccines     []domain.Vaccine
	Lots         []domain.VaccineLot
	Appointments []domain.Appointment
}

type Repository interface {
	LoadDataset(ctx context.Context) (Dataset, error)
	SavePerson(ctx context.Context, p domain.Person) error
	// SaveVaccineLot stores the lot and, on first sight, the vaccine definition. A lot
	// whose ID is already stored has its doses added to the stored one.
	SaveVaccineLot(ctx context.Context, v domain.Vaccine, lot domain.VaccineLot) error
	// SaveAppointments stores a booking atomically.
	SaveAppointments(ctx context.Context, appts []domain.Appointment) error
	DeleteAppointment(ctx context.Context, centerCode string, id uuid.UUID) error
}

// BookingTx is the unit of work used while a center's appointments are locked.
type BookingTx interface {
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, centerCode string, id uuid.UUID) error
}
