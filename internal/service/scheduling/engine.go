package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"vaxbook/internal/domain"
	"vaxbook/internal/store"
)

// DefaultHorizonDays is how many consecutive dates FindAndBook searches.
const DefaultHorizonDays = 6

// Booking is the outcome of a successful booking.
type Booking struct {
	CenterCode   string
	Document     string
	Vaccine      domain.Vaccine
	Appointments []domain.Appointment
	// SearchOffset is how many days after the requested date the first dose landed.
	SearchOffset int
}

// StockLevel is one (date, vaccine, doses) row of a center's stock.
type StockLevel struct {
	Date    domain.Date
	Vaccine string
	Doses   int
}

// Engine books appointments against the registries. It is not safe for concurrent use.
type Engine struct {
	persons  store.PersonRegistry
	vaccines store.VaccineRegistry
	centers  store.CenterRegistry
	finder   Finder
	horizon  int
	newID    func() (uuid.UUID, error)
}

type EngineOption func(*Engine)

// WithHorizon overrides the number of dates searched by FindAndBook.
func WithHorizon(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.horizon = days
		}
	}
}

func withIDGenerator(fn func() (uuid.UUID, error)) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

func NewEngine(persons store.PersonRegistry, vaccines store.VaccineRegistry, centers store.CenterRegistry, opts ...EngineOption) *Engine {
	e := &Engine{
		persons:  persons,
		vaccines: vaccines,
		centers:  centers,
		finder:   NewFinder(vaccines),
		horizon:  DefaultHorizonDays,
		newID:    uuid.NewV7,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BookAppointment books a full series of vaccineName starting at timestamp without
// looking at stock.
func (e *Engine) BookAppointment(centerCode, document, vaccineName string, timestamp time.Time) (Booking, error) {
	if _, ok := e.persons.FindByDocument(document); !ok {
		return Booking{}, fmt.Errorf("%w: %s", domain.ErrPersonNotFound, document)
	}
	v, ok := e.vaccines.FindByName(vaccineName)
	if !ok {
		return Booking{}, fmt.Errorf("%w: %s", domain.ErrVaccineNotFound, vaccineName)
	}
	center, ok := e.centers.FindByCode(centerCode)
	if !ok {
		return Booking{}, fmt.Errorf("%w: %s", domain.ErrHealthCenterNotFound, centerCode)
	}

	b := Booking{CenterCode: center.Code, Document: document, Vaccine: v}
	for _, ts := range domain.SeriesTimestamps(v, timestamp) {
		appt, err := e.newAppointment(center.Code, document, v.Name, ts, false)
		if err != nil {
			e.undo(center, b)
			return Booking{}, err
		}
		center.Appointments.Insert(appt)
		b.Appointments = append(b.Appointments, appt)
	}
	return b, nil
}

// FindAndBook searches the horizon starting at start's date for a stocked vaccine and
// books it. Multi-dose vaccines get the first dose plus one follow-up IntervalDays later,
// each taking one dose from the calendar. Nothing is committed unless the follow-up
// date has capacity.
func (e *Engine) FindAndBook(centerCode, document string, start time.Time) (Booking, error) {
	if _, ok := e.persons.FindByDocument(document); !ok {
		return Booking{}, fmt.Errorf("%w: %s", domain.ErrPersonNotFound, document)
	}
	center, ok := e.centers.FindByCode(centerCode)
	if !ok {
		return Booking{}, fmt.Errorf("%w: %s", domain.ErrHealthCenterNotFound, centerCode)
	}
	if center.Stock.Len() == 0 {
		return Booking{}, fmt.Errorf("%w: center %s has no stock", domain.ErrNoVaccines, centerCode)
	}
	if center.Appointments.FindByPerson(document, 0) >= 0 {
		return Booking{}, fmt.Errorf("%w: %s already has appointments at %s", domain.ErrDuplicatedPerson, document, centerCode)
	}

	first := domain.DateOf(start)
	for offset := 0; offset < e.horizon; offset++ {
		v, ok := e.finder.FirstBookable(center.Stock, first.AddDays(offset))
		if !ok {
			continue
		}
		b, err := e.commit(center, document, v, start.AddDate(0, 0, offset))
		if err != nil {
			return Booking{}, err
		}
		b.SearchOffset = offset
		return b, nil
	}
	return Booking{}, fmt.Errorf("%w: nothing stocked at %s within %d days of %s", domain.ErrNoVaccines, centerCode, e.horizon, first)
}

func (e *Engine) commit(center *domain.HealthCenter, document string, v domain.Vaccine, ts time.Time) (Booking, error) {
	stamps := []time.Time{ts}
	if v.MultiDose() {
		if !e.finder.HasCapacity(center.Stock, domain.DateOf(ts), v) {
			return Booking{}, fmt.Errorf("%w: follow-up stock of %s at %s is short", domain.ErrNoVaccines, v.Name, center.Code)
		}
		stamps = append(stamps, ts.AddDate(0, 0, v.IntervalDays))
	}

	b := Booking{CenterCode: center.Code, Document: document, Vaccine: v}
	for _, at := range stamps {
		appt, err := e.newAppointment(center.Code, document, v.Name, at, true)
		if err != nil {
			e.undo(center, b)
			return Booking{}, err
		}
		if err := center.Stock.Update(appt.Date(), v.Name, -1); err != nil {
			e.undo(center, b)
			return Booking{}, err
		}
		center.Appointments.Insert(appt)
		b.Appointments = append(b.Appointments, appt)
	}
	return b, nil
}

// Rollback removes a booking's appointments and returns any doses they reserved.
func (e *Engine) Rollback(b Booking) error {
	center, ok := e.centers.FindByCode(b.CenterCode)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrHealthCenterNotFound, b.CenterCode)
	}
	e.undo(center, b)
	return nil
}

func (e *Engine) undo(center *domain.HealthCenter, b Booking) {
	for i := len(b.Appointments) - 1; i >= 0; i-- {
		e.release(center, b.Appointments[i])
	}
}

func (e *Engine) release(center *domain.HealthCenter, appt domain.Appointment) {
	if _, ok := center.Appointments.Remove(appt.Timestamp, appt.Document); !ok {
		return
	}
	if appt.Reserved {
		// Adding doses back cannot fail.
		_ = center.Stock.Update(appt.Date(), appt.Vaccine, 1)
	}
}

// Cancel removes a single appointment. A dose it reserved goes back to the calendar.
func (e *Engine) Cancel(centerCode, document string, timestamp time.Time) (domain.Appointment, error) {
	center, ok := e.centers.FindByCode(centerCode)
	if !ok {
		return domain.Appointment{}, fmt.Errorf("%w: %s", domain.ErrHealthCenterNotFound, centerCode)
	}
	removed, ok := center.Appointments.Remove(timestamp, document)
	if !ok {
		return domain.Appointment{}, fmt.Errorf("%w: %s at %s", domain.ErrAppointmentNotFound, document, timestamp.Format(time.RFC3339))
	}
	if removed.Reserved {
		_ = center.Stock.Update(removed.Date(), removed.Vaccine, 1)
	}
	return removed, nil
}

// Restore puts a previously stored appointment back, taking its dose again if it had
// reserved one.
func (e *Engine) Restore(appt domain.Appointment) error {
	center, ok := e.centers.FindByCode(appt.CenterCode)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrHealthCenterNotFound, appt.CenterCode)
	}
	if appt.Reserved {
		if err := center.Stock.Update(appt.Date(), appt.Vaccine, -1); err != nil {
			return err
		}
	}
	center.Appointments.Insert(appt)
	return nil
}

// PersonAppointments lists a person's appointments across all centers, chronologically.
func (e *Engine) PersonAppointments(document string) ([]domain.Appointment, error) {
	if _, ok := e.persons.FindByDocument(document); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPersonNotFound, document)
	}
	var out []domain.Appointment
	for _, c := range e.centers.Centers() {
		out = append(out, c.Appointments.ForPerson(document)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// CenterStock flattens a center's calendar into rows ordered by date, then by vaccine
// registration order.
func (e *Engine) CenterStock(centerCode string) ([]StockLevel, error) {
	center, ok := e.centers.FindByCode(centerCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHealthCenterNotFound, centerCode)
	}
	var out []StockLevel
	for _, day := range center.Stock.Days() {
		for _, entry := range day.Entries() {
			out = append(out, StockLevel{Date: day.Date, Vaccine: entry.Vaccine, Doses: entry.Doses})
		}
	}
	return out, nil
}

func (e *Engine) newAppointment(centerCode, document, vaccine string, ts time.Time, reserved bool) (domain.Appointment, error) {
	id, err := e.newID()
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("appointment id: %w", err)
	}
	return domain.Appointment{
		ID:         id,
		CenterCode: centerCode,
		Document:   document,
		Vaccine:    vaccine,
		Timestamp:  ts,
		Reserved:   reserved,
	}, nil
}
