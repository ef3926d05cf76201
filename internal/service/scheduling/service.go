package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vaxbook/internal/domain"
	"vaxbook/internal/ingest"
	"vaxbook/internal/store"
	"vaxbook/internal/store/memory"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

const (
	ModeDirect = "direct"
	ModeAuto   = "auto"
)

type Metrics interface {
	ObserveBooking(mode, outcome string)
	ObserveSearchOffset(days int)
	AddReservedDoses(n int)
	AddLotDoses(center string, doses int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveBooking(string, string) {}
func (nopMetrics) ObserveSearchOffset(int)       {}
func (nopMetrics) AddReservedDoses(int)          {}
func (nopMetrics) AddLotDoses(string, int)       {}

type Options struct {
	HorizonDays int
	Metrics     Metrics
	Log         *slog.Logger
}

// Service owns the scheduling aggregate and serializes every operation on it.
// Changes are written to the repository; the in-memory state is the source for reads.
type Service struct {
	mu       sync.Mutex
	repo     store.Repository
	registry *memory.Registry
	engine   *Engine
	horizon  int
	metrics  Metrics
	log      *slog.Logger
}

func NewService(repo store.Repository, opts Options) *Service {
	s := &Service{
		repo:    repo,
		horizon: opts.HorizonDays,
		metrics: opts.Metrics,
		log:     opts.Log,
	}
	if s.horizon <= 0 {
		s.horizon = DefaultHorizonDays
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With(slog.String("component", "service.scheduling"))
	s.registry = memory.NewRegistry()
	s.engine = s.newEngine(s.registry)
	return s
}

func (s *Service) newEngine(r *memory.Registry) *Engine {
	return NewEngine(r, r, r, WithHorizon(s.horizon))
}

// Restore rebuilds the aggregate from the repository. Lots are replayed in arrival
// order, then appointments; reserved appointments take their dose again.
func (s *Service) Restore(ctx context.Context) error {
	ds, err := s.repo.LoadDataset(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	r := memory.NewRegistry()
	for _, p := range ds.Persons {
		if err := r.AddPerson(p); err != nil {
			return err
		}
	}
	catalogue := make(map[string]domain.Vaccine, len(ds.Vaccines))
	for _, v := range ds.Vaccines {
		catalogue[v.Name] = v
	}
	for _, lot := range ds.Lots {
		v, ok := catalogue[lot.Vaccine]
		if !ok {
			return fmt.Errorf("lot %s: %w: %s", lot.ID, domain.ErrVaccineNotFound, lot.Vaccine)
		}
		if err := r.AddVaccineLot(v, lot); err != nil {
			return fmt.Errorf("lot %s: %w", lot.ID, err)
		}
	}
	engine := s.newEngine(r)
	for _, a := range ds.Appointments {
		if err := engine.Restore(a); err != nil {
			return fmt.Errorf("appointment %s: %w", a.ID, err)
		}
	}

	s.log.Info(
		"dataset restored",
		slog.Int("persons", r.PersonCount()),
		slog.Int("vaccines", len(r.Vaccines())),
		slog.Int("centers", len(r.Centers())),
		slog.Int("lots", len(r.Lots())),
		slog.Int("appointments", len(ds.Appointments)),
	)

	s.mu.Lock()
	s.registry = r
	s.engine = engine
	s.mu.Unlock()
	return nil
}

type PersonInput struct {
	Document   string
	Name       string
	Surname    string
	Email      string
	Address    string
	CenterCode string
	Birthdate  time.Time
}

func (s *Service) RegisterPerson(ctx context.Context, in PersonInput) (domain.Person, error) {
	document := strings.TrimSpace(in.Document)
	if document == "" {
		return domain.Person{}, validationError("document is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Person{}, validationError("name is required")
	}

	p := domain.Person{
		Document:   document,
		Name:       name,
		Surname:    strings.TrimSpace(in.Surname),
		Email:      strings.TrimSpace(in.Email),
		Address:    strings.TrimSpace(in.Address),
		CenterCode: strings.TrimSpace(in.CenterCode),
	}
	if !in.Birthdate.IsZero() {
		p.Birthdate = in.Birthdate.UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.registry.FindByDocument(document); exists {
		return domain.Person{}, fmt.Errorf("%w: %s", domain.ErrDuplicatedPerson, document)
	}
	if err := s.repo.SavePerson(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Person{}, fmt.Errorf("%w: %s", domain.ErrDuplicatedPerson, document)
		}
		return domain.Person{}, err
	}
	if err := s.registry.AddPerson(p); err != nil {
		return domain.Person{}, err
	}

	s.log.Info("person registered", slog.String("document", document))
	return p, nil
}

type LotInput struct {
	CenterCode    string
	Vaccine       string
	RequiredDoses int
	IntervalDays  int
	ReceivedAt    time.Time
	Doses         int
}

// AddVaccineLot records a delivery and adds its doses to the center's stock. A vaccine
// seen for the first time is registered with the lot's definition; later lots keep the
// registered one. A delivery with the same center, vaccine and time as a recorded lot
// is merged into it, and the merged lot is returned.
func (s *Service) AddVaccineLot(ctx context.Context, in LotInput) (domain.VaccineLot, error) {
	center := strings.TrimSpace(in.CenterCode)
	if center == "" {
		return domain.VaccineLot{}, validationError("center_code is required")
	}
	name := strings.TrimSpace(in.Vaccine)
	if name == "" {
		return domain.VaccineLot{}, validationError("vaccine is required")
	}
	if in.RequiredDoses < 1 {
		return domain.VaccineLot{}, validationError("required_doses must be at least 1")
	}
	if in.IntervalDays < 0 {
		return domain.VaccineLot{}, validationError("interval_days must not be negative")
	}
	if in.RequiredDoses > 1 && in.IntervalDays < 1 {
		return domain.VaccineLot{}, validationError("interval_days must be at least 1 when required_doses is above 1")
	}
	if in.Doses < 1 {
		return domain.VaccineLot{}, validationError("doses must be at least 1")
	}
	if in.ReceivedAt.IsZero() {
		return domain.VaccineLot{}, validationError("received_at is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := domain.Vaccine{Name: name, RequiredDoses: in.RequiredDoses, IntervalDays: in.IntervalDays}
	if existing, ok := s.registry.FindByName(name); ok {
		if existing.RequiredDoses != v.RequiredDoses || existing.IntervalDays != v.IntervalDays {
			s.log.Warn(
				"lot vaccine definition differs from catalogue; keeping catalogue",
				slog.String("vaccine", name),
				slog.Int("required_doses", existing.RequiredDoses),
				slog.Int("interval_days", existing.IntervalDays),
			)
		}
		v = existing
	}

	receivedAt := in.ReceivedAt.UTC()
	lot := domain.VaccineLot{
		ID:         domain.LotID(center, name, receivedAt),
		CenterCode: center,
		Vaccine:    name,
		ReceivedAt: receivedAt,
		Doses:      in.Doses,
	}
	if err := s.repo.SaveVaccineLot(ctx, v, lot); err != nil {
		return domain.VaccineLot{}, err
	}
	if err := s.registry.AddVaccineLot(v, lot); err != nil {
		return domain.VaccineLot{}, err
	}
	s.metrics.AddLotDoses(center, lot.Doses)
	if merged, ok := s.registry.Lot(lot.ID); ok {
		lot = merged
	}

	s.log.Info(
		"vaccine lot added",
		slog.String("center_code", center),
		slog.String("vaccine", name),
		slog.Time("received_at", receivedAt),
		slog.Int("doses", in.Doses),
		slog.Int("lot_doses", lot.Doses),
	)
	return lot, nil
}

func (s *Service) GetVaccine(ctx context.Context, name string) (domain.Vaccine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Vaccine{}, validationError("vaccine is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.registry.FindByName(name)
	if !ok {
		return domain.Vaccine{}, fmt.Errorf("%w: %s", domain.ErrVaccineNotFound, name)
	}
	return v, nil
}

// ListVaccines returns the catalogue in registration order.
func (s *Service) ListVaccines(ctx context.Context) []domain.Vaccine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Vaccines()
}

func (s *Service) GetVaccineLot(ctx context.Context, centerCode, vaccine string, receivedAt time.Time) (domain.VaccineLot, error) {
	centerCode = strings.TrimSpace(centerCode)
	vaccine = strings.TrimSpace(vaccine)
	switch {
	case centerCode == "":
		return domain.VaccineLot{}, validationError("center_code is required")
	case vaccine == "":
		return domain.VaccineLot{}, validationError("vaccine is required")
	case receivedAt.IsZero():
		return domain.VaccineLot{}, validationError("received_at is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.registry.Lot(domain.LotID(centerCode, vaccine, receivedAt))
	if !ok {
		return domain.VaccineLot{}, fmt.Errorf("%w: %s %s at %s", domain.ErrLotNotFound, centerCode, vaccine, receivedAt.UTC().Format(time.RFC3339))
	}
	return lot, nil
}

// ListVaccineLots returns every recorded lot in arrival order.
func (s *Service) ListVaccineLots(ctx context.Context) []domain.VaccineLot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Lots()
}

type Stats struct {
	Persons  int
	Vaccines int
	Lots     int
	Centers  int
}

func (s Stats) Empty() bool {
	return s.Persons == 0 && s.Vaccines == 0 && s.Lots == 0 && s.Centers == 0
}

func (s *Service) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Persons:  s.registry.PersonCount(),
		Vaccines: len(s.registry.Vaccines()),
		Lots:     len(s.registry.Lots()),
		Centers:  len(s.registry.Centers()),
	}
}

type BookInput struct {
	CenterCode string
	Document   string
	Vaccine    string
	Timestamp  time.Time
}

// BookAppointment books a full series of the given vaccine without consulting stock.
func (s *Service) BookAppointment(ctx context.Context, in BookInput) (Booking, error) {
	center := strings.TrimSpace(in.CenterCode)
	document := strings.TrimSpace(in.Document)
	vaccine := strings.TrimSpace(in.Vaccine)
	switch {
	case center == "":
		return Booking{}, validationError("center_code is required")
	case document == "":
		return Booking{}, validationError("document is required")
	case vaccine == "":
		return Booking{}, validationError("vaccine is required")
	case in.Timestamp.IsZero():
		return Booking{}, validationError("timestamp is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.engine.BookAppointment(center, document, vaccine, in.Timestamp.UTC())
	if err != nil {
		s.metrics.ObserveBooking(ModeDirect, outcome(err))
		return Booking{}, err
	}
	if err := s.persist(ctx, b); err != nil {
		s.metrics.ObserveBooking(ModeDirect, outcome(err))
		return Booking{}, err
	}
	s.metrics.ObserveBooking(ModeDirect, "booked")
	return b, nil
}

type FindInput struct {
	CenterCode string
	Document   string
	Start      time.Time
}

// FindAndBook books the first stocked vaccine within the search horizon.
func (s *Service) FindAndBook(ctx context.Context, in FindInput) (Booking, error) {
	center := strings.TrimSpace(in.CenterCode)
	document := strings.TrimSpace(in.Document)
	switch {
	case center == "":
		return Booking{}, validationError("center_code is required")
	case document == "":
		return Booking{}, validationError("document is required")
	case in.Start.IsZero():
		return Booking{}, validationError("start is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.engine.FindAndBook(center, document, in.Start.UTC())
	if err != nil {
		s.metrics.ObserveBooking(ModeAuto, outcome(err))
		return Booking{}, err
	}
	if err := s.persist(ctx, b); err != nil {
		s.metrics.ObserveBooking(ModeAuto, outcome(err))
		return Booking{}, err
	}
	s.metrics.ObserveBooking(ModeAuto, "booked")
	s.metrics.ObserveSearchOffset(b.SearchOffset)
	s.metrics.AddReservedDoses(len(b.Appointments))
	return b, nil
}

// persist writes a booking; on failure the booking is undone in memory.
func (s *Service) persist(ctx context.Context, b Booking) error {
	if err := s.repo.SaveAppointments(ctx, b.Appointments); err != nil {
		if rbErr := s.engine.Rollback(b); rbErr != nil {
			s.log.Error("booking rollback failed", slog.Any("err", rbErr), slog.String("center_code", b.CenterCode))
		}
		return fmt.Errorf("save appointments: %w", err)
	}
	s.log.Info(
		"booking committed",
		slog.String("center_code", b.CenterCode),
		slog.String("document", b.Document),
		slog.String("vaccine", b.Vaccine.Name),
		slog.Int("appointments", len(b.Appointments)),
		slog.Time("first_dose", b.Appointments[0].Timestamp),
	)
	return nil
}

// CancelAppointment removes one appointment. If it reserved a dose the dose is returned.
func (s *Service) CancelAppointment(ctx context.Context, centerCode, document string, timestamp time.Time) (domain.Appointment, error) {
	center := strings.TrimSpace(centerCode)
	document = strings.TrimSpace(document)
	switch {
	case center == "":
		return domain.Appointment{}, validationError("center_code is required")
	case document == "":
		return domain.Appointment{}, validationError("document is required")
	case timestamp.IsZero():
		return domain.Appointment{}, validationError("timestamp is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.engine.Cancel(center, document, timestamp.UTC())
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := s.repo.DeleteAppointment(ctx, center, removed.ID); err != nil {
		if rErr := s.engine.Restore(removed); rErr != nil {
			s.log.Error("cancel rollback failed", slog.Any("err", rErr), slog.String("appointment_id", removed.ID.String()))
		}
		return domain.Appointment{}, fmt.Errorf("delete appointment: %w", err)
	}

	s.log.Info(
		"appointment cancelled",
		slog.String("appointment_id", removed.ID.String()),
		slog.String("center_code", center),
		slog.String("document", document),
		slog.Bool("dose_released", removed.Reserved),
	)
	return removed, nil
}

func (s *Service) PersonAppointments(ctx context.Context, document string) ([]domain.Appointment, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return nil, validationError("document is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.PersonAppointments(document)
}

func (s *Service) CenterStock(ctx context.Context, centerCode string) ([]StockLevel, error) {
	centerCode = strings.TrimSpace(centerCode)
	if centerCode == "" {
		return nil, validationError("center_code is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.CenterStock(centerCode)
}

type ImportResult struct {
	Persons int
	Lots    int
	Skipped int
}

// Import applies parsed records in file order. Persons already registered are skipped;
// lots always add their doses.
func (s *Service) Import(ctx context.Context, entries []ingest.Entry) (ImportResult, error) {
	var res ImportResult
	for _, e := range entries {
		var err error
		switch e.Kind {
		case ingest.KindPerson:
			_, err = s.RegisterPerson(ctx, PersonInput{
				Document:   e.Person.Document,
				Name:       e.Person.Name,
				Surname:    e.Person.Surname,
				Email:      e.Person.Email,
				Address:    e.Person.Address,
				CenterCode: e.Person.CenterCode,
				Birthdate:  e.Person.Birthdate,
			})
			if err == nil {
				res.Persons++
			}
		case ingest.KindVaccineLot:
			_, err = s.AddVaccineLot(ctx, LotInput{
				CenterCode:    e.Lot.CenterCode,
				Vaccine:       e.Vaccine.Name,
				RequiredDoses: e.Vaccine.RequiredDoses,
				IntervalDays:  e.Vaccine.IntervalDays,
				ReceivedAt:    e.Lot.ReceivedAt,
				Doses:         e.Lot.Doses,
			})
			if err == nil {
				res.Lots++
			}
		default:
			err = fmt.Errorf("%w: %s", ingest.ErrInvalidEntryType, e.Kind)
		}

		if errors.Is(err, domain.ErrDuplicatedPerson) {
			res.Skipped++
			s.log.Debug("import record skipped", slog.Int("line", e.Line), slog.Any("err", err))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("line %d: %w", e.Line, err)
		}
	}

	s.log.Info(
		"import finished",
		slog.Int("persons", res.Persons),
		slog.Int("lots", res.Lots),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrPersonNotFound):
		return "person_not_found"
	case errors.Is(err, domain.ErrVaccineNotFound):
		return "vaccine_not_found"
	case errors.Is(err, domain.ErrHealthCenterNotFound):
		return "center_not_found"
	case errors.Is(err, domain.ErrDuplicatedPerson):
		return "duplicated_person"
	case errors.Is(err, domain.ErrNoVaccines):
		return "no_vaccines"
	default:
		return "error"
	}
}
