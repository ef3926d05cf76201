package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"vaxbook/internal/domain"
	"vaxbook/internal/store"
)

// Repository keeps the dataset in process memory. It is used when no database is
// configured and in tests.
type Repository struct {
	mu           sync.RWMutex
	persons      map[string]domain.Person
	vaccines     map[string]domain.Vaccine
	vaccineOrder []string
	lots         []domain.VaccineLot
	lotIndex     map[uuid.UUID]int
	appointments map[uuid.UUID]domain.Appointment
}

var _ store.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		persons:      make(map[string]domain.Person),
		vaccines:     make(map[string]domain.Vaccine),
		lotIndex:     make(map[uuid.UUID]int),
		appointments: make(map[uuid.UUID]domain.Appointment),
	}
}

func (r *Repository) LoadDataset(ctx context.Context) (store.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds := store.Dataset{
		Persons:      make([]domain.Person, 0, len(r.persons)),
		Vaccines:     make([]domain.Vaccine, 0, len(r.vaccineOrder)),
		Lots:         append([]domain.VaccineLot(nil), r.lots...),
		Appointments: make([]domain.Appointment, 0, len(r.appointments)),
	}
	for _, p := range r.persons {
		ds.Persons = append(ds.Persons, p)
	}
	sort.Slice(ds.Persons, func(i, j int) bool { return ds.Persons[i].Document < ds.Persons[j].Document })

	for _, name := range r.vaccineOrder {
		ds.Vaccines = append(ds.Vaccines, r.vaccines[name])
	}

	for _, a := range r.appointments {
		ds.Appointments = append(ds.Appointments, a)
	}
	sort.Slice(ds.Appointments, func(i, j int) bool {
		return ds.Appointments[i].Timestamp.Before(ds.Appointments[j].Timestamp)
	})

	return ds, nil
}

func (r *Repository) SavePerson(ctx context.Context, p domain.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.persons[p.Document]; exists {
		return store.ErrConflict
	}
	r.persons[p.Document] = p
	return nil
}

func (r *Repository) SaveVaccineLot(ctx context.Context, v domain.Vaccine, lot domain.VaccineLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lot.ID == uuid.Nil {
		lot.ID = domain.LotID(lot.CenterCode, lot.Vaccine, lot.ReceivedAt)
	}
	if _, known := r.vaccines[v.Name]; !known {
		r.vaccines[v.Name] = v
		r.vaccineOrder = append(r.vaccineOrder, v.Name)
	}
	if i, exists := r.lotIndex[lot.ID]; exists {
		r.lots[i].Doses += lot.Doses
		return nil
	}
	r.lotIndex[lot.ID] = len(r.lots)
	r.lots = append(r.lots, lot)
	return nil
}

func (r *Repository) SaveAppointments(ctx context.Context, appts []domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range appts {
		if a.ID == uuid.Nil {
			return store.ErrConflict
		}
		if _, exists := r.appointments[a.ID]; exists {
			return store.ErrConflict
		}
	}
	for _, a := range appts {
		r.appointments[a.ID] = a
	}
	return nil
}

func (r *Repository) DeleteAppointment(ctx context.Context, centerCode string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.CenterCode != centerCode {
		return store.ErrNotFound
	}
	delete(r.appointments, id)
	return nil
}
