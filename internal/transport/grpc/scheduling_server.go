package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"vaxbook/internal/domain"
	"vaxbook/internal/service/scheduling"
	"vaxbook/internal/store"
)

type SchedulingServer struct {
	svc schedulingService
	log *slog.Logger
}

var _ SchedulingServiceServer = (*SchedulingServer)(nil)

type schedulingService interface {
	RegisterPerson(ctx context.Context, in scheduling.PersonInput) (domain.Person, error)
	AddVaccineLot(ctx context.Context, in scheduling.LotInput) (domain.VaccineLot, error)
	BookAppointment(ctx context.Context, in scheduling.BookInput) (scheduling.Booking, error)
	FindAndBook(ctx context.Context, in scheduling.FindInput) (scheduling.Booking, error)
	CancelAppointment(ctx context.Context, centerCode, document string, timestamp time.Time) (domain.Appointment, error)
	PersonAppointments(ctx context.Context, document string) ([]domain.Appointment, error)
	CenterStock(ctx context.Context, centerCode string) ([]scheduling.StockLevel, error)
	GetVaccine(ctx context.Context, name string) (domain.Vaccine, error)
	ListVaccines(ctx context.Context) []domain.Vaccine
	GetVaccineLot(ctx context.Context, centerCode, vaccine string, receivedAt time.Time) (domain.VaccineLot, error)
	ListVaccineLots(ctx context.Context) []domain.VaccineLot
	Stats(ctx context.Context) scheduling.Stats
}

func NewSchedulingServer(svc schedulingService, log *slog.Logger) *SchedulingServer {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.scheduling")),
	}
}

func (s *SchedulingServer) RegisterPerson(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "RegisterPerson"))

	birthdate, err := dateField(req, "birthdate")
	if err != nil {
		return nil, statusError(log, err, "")
	}

	p, err := s.svc.RegisterPerson(ctx, scheduling.PersonInput{
		Document:   stringField(req, "document"),
		Name:       stringField(req, "name"),
		Surname:    stringField(req, "surname"),
		Email:      stringField(req, "email"),
		Address:    stringField(req, "address"),
		CenterCode: stringField(req, "center_code"),
		Birthdate:  birthdate,
	})
	if err != nil {
		return nil, statusError(log, err, "person register failed")
	}

	return toStruct(log, personValue(p))
}

func (s *SchedulingServer) AddVaccineLot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "AddVaccineLot"))

	in := scheduling.LotInput{
		CenterCode: stringField(req, "center_code"),
		Vaccine:    stringField(req, "vaccine"),
	}
	var err error
	if in.RequiredDoses, err = intField(req, "required_doses"); err != nil {
		return nil, statusError(log, err, "")
	}
	if in.IntervalDays, err = intField(req, "interval_days"); err != nil {
		return nil, statusError(log, err, "")
	}
	if in.Doses, err = intField(req, "doses"); err != nil {
		return nil, statusError(log, err, "")
	}
	if in.ReceivedAt, err = timeField(req, "received_at"); err != nil {
		return nil, statusError(log, err, "")
	}

	lot, err := s.svc.AddVaccineLot(ctx, in)
	if err != nil {
		return nil, statusError(log, err, "vaccine lot add failed")
	}

	return toStruct(log, lotValue(lot))
}

func (s *SchedulingServer) BookAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "BookAppointment"))

	ts, err := timeField(req, "timestamp")
	if err != nil {
		return nil, statusError(log, err, "")
	}

	b, err := s.svc.BookAppointment(ctx, scheduling.BookInput{
		CenterCode: stringField(req, "center_code"),
		Document:   stringField(req, "document"),
		Vaccine:    stringField(req, "vaccine"),
		Timestamp:  ts,
	})
	if err != nil {
		return nil, statusError(log, err, "appointment booking failed")
	}

	return toStruct(log, bookingValue(b))
}

func (s *SchedulingServer) FindAndBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "FindAndBook"))

	start, err := timeField(req, "start")
	if err != nil {
		return nil, statusError(log, err, "")
	}

	b, err := s.svc.FindAndBook(ctx, scheduling.FindInput{
		CenterCode: stringField(req, "center_code"),
		Document:   stringField(req, "document"),
		Start:      start,
	})
	if err != nil {
		return nil, statusError(log, err, "find and book failed")
	}

	log.Debug(
		"slot found",
		slog.String("center_code", b.CenterCode),
		slog.String("document", b.Document),
		slog.Int("search_offset_days", b.SearchOffset),
	)
	return toStruct(log, bookingValue(b))
}

func (s *SchedulingServer) CancelAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	ts, err := timeField(req, "timestamp")
	if err != nil {
		return nil, statusError(log, err, "")
	}

	removed, err := s.svc.CancelAppointment(ctx, stringField(req, "center_code"), stringField(req, "document"), ts)
	if err != nil {
		return nil, statusError(log, err, "appointment cancel failed")
	}

	return toStruct(log, appointmentValue(removed))
}

func (s *SchedulingServer) ListPersonAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListPersonAppointments"))

	document := stringField(req, "document")
	appts, err := s.svc.PersonAppointments(ctx, document)
	if err != nil {
		return nil, statusError(log, err, "appointments list failed")
	}

	log.Debug("appointments listed", slog.String("document", document), slog.Int("count", len(appts)))
	return toStruct(log, map[string]any{
		"document":     document,
		"appointments": appointmentList(appts),
	})
}

func (s *SchedulingServer) GetCenterStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetCenterStock"))

	centerCode := stringField(req, "center_code")
	levels, err := s.svc.CenterStock(ctx, centerCode)
	if err != nil {
		return nil, statusError(log, err, "center stock failed")
	}

	return toStruct(log, stockValue(centerCode, levels))
}

func (s *SchedulingServer) GetVaccine(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetVaccine"))

	v, err := s.svc.GetVaccine(ctx, stringField(req, "name"))
	if err != nil {
		return nil, statusError(log, err, "vaccine lookup failed")
	}
	return toStruct(log, vaccineValue(v))
}

func (s *SchedulingServer) ListVaccines(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListVaccines"))
	return toStruct(log, map[string]any{"vaccines": vaccineList(s.svc.ListVaccines(ctx))})
}

func (s *SchedulingServer) GetVaccineLot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetVaccineLot"))

	receivedAt, err := timeField(req, "received_at")
	if err != nil {
		return nil, statusError(log, err, "")
	}
	lot, err := s.svc.GetVaccineLot(ctx, stringField(req, "center_code"), stringField(req, "vaccine"), receivedAt)
	if err != nil {
		return nil, statusError(log, err, "vaccine lot lookup failed")
	}
	return toStruct(log, lotValue(lot))
}

func (s *SchedulingServer) ListVaccineLots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListVaccineLots"))
	return toStruct(log, map[string]any{"lots": lotList(s.svc.ListVaccineLots(ctx))})
}

func (s *SchedulingServer) GetStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "GetStats"))
	return toStruct(log, statsValue(s.svc.Stats(ctx)))
}

func toStruct(log *slog.Logger, m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		log.Error("response encode failed", slog.Any("err", err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func statusError(log *slog.Logger, err error, failure string) error {
	var rErr *requestError
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &rErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, rErr.Error())
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, domain.ErrPersonNotFound),
		errors.Is(err, domain.ErrVaccineNotFound),
		errors.Is(err, domain.ErrHealthCenterNotFound),
		errors.Is(err, domain.ErrAppointmentNotFound),
		errors.Is(err, domain.ErrLotNotFound):
		log.Info("not found", slog.Any("err", err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicatedPerson),
		errors.Is(err, domain.ErrNoVaccines):
		log.Info("precondition failed", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, store.ErrConflict):
		log.Info("conflict", slog.Any("err", err))
		return status.Error(codes.AlreadyExists, "record already exists")
	default:
		log.Error(failure, slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}
