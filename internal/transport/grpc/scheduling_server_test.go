package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"vaxbook/internal/domain"
	"vaxbook/internal/service/scheduling"
	"vaxbook/internal/store"
)

type fakeSchedulingService struct {
	registerPersonFn     func(ctx context.Context, in scheduling.PersonInput) (domain.Person, error)
	addVaccineLotFn      func(ctx context.Context, in scheduling.LotInput) (domain.VaccineLot, error)
	bookAppointmentFn    func(ctx context.Context, in scheduling.BookInput) (scheduling.Booking, error)
	findAndBookFn        func(ctx context.Context, in scheduling.FindInput) (scheduling.Booking, error)
	cancelAppointmentFn  func(ctx context.Context, centerCode, document string, timestamp time.Time) (domain.Appointment, error)
	personAppointmentsFn func(ctx context.Context, document string) ([]domain.Appointment, error)
	centerStockFn        func(ctx context.Context, centerCode string) ([]scheduling.StockLevel, error)
	getVaccineFn         func(ctx context.Context, name string) (domain.Vaccine, error)
	listVaccinesFn       func(ctx context.Context) []domain.Vaccine
	getVaccineLotFn      func(ctx context.Context, centerCode, vaccine string, receivedAt time.Time) (domain.VaccineLot, error)
	listVaccineLotsFn    func(ctx context.Context) []domain.VaccineLot
	statsFn              func(ctx context.Context) scheduling.Stats
}

func (f *fakeSchedulingService) RegisterPerson(ctx context.Context, in scheduling.PersonInput) (domain.Person, error) {
	if f.registerPersonFn == nil {
		panic("RegisterPerson not configured")
	}
	return f.registerPersonFn(ctx, in)
}

func (f *fakeSchedulingService) AddVaccineLot(ctx context.Context, in scheduling.LotInput) (domain.VaccineLot, error) {
	if f.addVaccineLotFn == nil {
		panic("AddVaccineLot not configured")
	}
	return f.addVaccineLotFn(ctx, in)
}

func (f *fakeSchedulingService) BookAppointment(ctx context.Context, in scheduling.BookInput) (scheduling.Booking, error) {
	if f.bookAppointmentFn == nil {
		panic("BookAppointment not configured")
	}
	return f.bookAppointmentFn(ctx, in)
}

func (f *fakeSchedulingService) FindAndBook(ctx context.Context, in scheduling.FindInput) (scheduling.Booking, error) {
	if f.findAndBookFn == nil {
		panic("FindAndBook not configured")
	}
	return f.findAndBookFn(ctx, in)
}

func (f *fakeSchedulingService) CancelAppointment(ctx context.Context, centerCode, document string, timestamp time.Time) (domain.Appointment, error) {
	if f.cancelAppointmentFn == nil {
		panic("CancelAppointment not configured")
	}
	return f.cancelAppointmentFn(ctx, centerCode, document, timestamp)
}

func (f *fakeSchedulingService) PersonAppointments(ctx context.Context, document string) ([]domain.Appointment, error) {
	if f.personAppointmentsFn == nil {
		panic("PersonAppointments not configured")
	}
	return f.personAppointmentsFn(ctx, document)
}

func (f *fakeSchedulingService) CenterStock(ctx context.Context, centerCode string) ([]scheduling.StockLevel, error) {
	if f.centerStockFn == nil {
		panic("CenterStock not configured")
	}
	return f.centerStockFn(ctx, centerCode)
}

func (f *fakeSchedulingService) GetVaccine(ctx context.Context, name string) (domain.Vaccine, error) {
	if f.getVaccineFn == nil {
		panic("GetVaccine not configured")
	}
	return f.getVaccineFn(ctx, name)
}

func (f *fakeSchedulingService) ListVaccines(ctx context.Context) []domain.Vaccine {
	if f.listVaccinesFn == nil {
		panic("ListVaccines not configured")
	}
	return f.listVaccinesFn(ctx)
}

func (f *fakeSchedulingService) GetVaccineLot(ctx context.Context, centerCode, vaccine string, receivedAt time.Time) (domain.VaccineLot, error) {
	if f.getVaccineLotFn == nil {
		panic("GetVaccineLot not configured")
	}
	return f.getVaccineLotFn(ctx, centerCode, vaccine, receivedAt)
}

func (f *fakeSchedulingService) ListVaccineLots(ctx context.Context) []domain.VaccineLot {
	if f.listVaccineLotsFn == nil {
		panic("ListVaccineLots not configured")
	}
	return f.listVaccineLotsFn(ctx)
}

func (f *fakeSchedulingService) Stats(ctx context.Context) scheduling.Stats {
	if f.statsFn == nil {
		panic("Stats not configured")
	}
	return f.statsFn(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct error: %v", err)
	}
	return s
}

func TestAddVaccineLot_DecodesRequest(t *testing.T) {
	var got scheduling.LotInput
	srv := NewSchedulingServer(&fakeSchedulingService{
		addVaccineLotFn: func(ctx context.Context, in scheduling.LotInput) (domain.VaccineLot, error) {
			got = in
			return domain.VaccineLot{CenterCode: in.CenterCode, Vaccine: in.Vaccine, ReceivedAt: in.ReceivedAt, Doses: in.Doses}, nil
		},
	}, testLogger())

	resp, err := srv.AddVaccineLot(context.Background(), mustStruct(t, map[string]any{
		"center_code":    "C1",
		"vaccine":        "V2",
		"required_doses": 2,
		"interval_days":  21,
		"doses":          40,
		"received_at":    "2024-01-10T08:00:00Z",
	}))
	if err != nil {
		t.Fatalf("AddVaccineLot error: %v", err)
	}
	want := scheduling.LotInput{
		CenterCode:    "C1",
		Vaccine:       "V2",
		RequiredDoses: 2,
		IntervalDays:  21,
		Doses:         40,
		ReceivedAt:    time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
	}
	if !got.ReceivedAt.Equal(want.ReceivedAt) {
		t.Fatalf("received_at = %v, want %v", got.ReceivedAt, want.ReceivedAt)
	}
	got.ReceivedAt = want.ReceivedAt
	if got != want {
		t.Fatalf("input = %+v, want %+v", got, want)
	}
	if d := resp.GetFields()["doses"].GetNumberValue(); d != 40 {
		t.Fatalf("doses = %v, want 40", d)
	}
}

func TestAddVaccineLot_RejectsMalformedFields(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{}, testLogger())

	tests := []struct {
		name string
		req  map[string]any
	}{
		{name: "fractional doses", req: map[string]any{"doses": 1.5}},
		{name: "string doses", req: map[string]any{"doses": "ten"}},
		{name: "bad timestamp", req: map[string]any{"doses": 1, "received_at": "10/01/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.AddVaccineLot(context.Background(), mustStruct(t, tt.req))
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %v, want %v", status.Code(err), codes.InvalidArgument)
			}
		})
	}
}

func TestStatusError_Mapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "person not found", err: fmt.Errorf("%w: D", domain.ErrPersonNotFound), want: codes.NotFound},
		{name: "vaccine not found", err: domain.ErrVaccineNotFound, want: codes.NotFound},
		{name: "center not found", err: domain.ErrHealthCenterNotFound, want: codes.NotFound},
		{name: "appointment not found", err: domain.ErrAppointmentNotFound, want: codes.NotFound},
		{name: "lot not found", err: domain.ErrLotNotFound, want: codes.NotFound},
		{name: "duplicated person", err: domain.ErrDuplicatedPerson, want: codes.FailedPrecondition},
		{name: "no vaccines", err: domain.ErrNoVaccines, want: codes.FailedPrecondition},
		{name: "store conflict", err: fmt.Errorf("save: %w", store.ErrConflict), want: codes.AlreadyExists},
		{name: "internal", err: errors.New("boom"), want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewSchedulingServer(&fakeSchedulingService{
				findAndBookFn: func(ctx context.Context, in scheduling.FindInput) (scheduling.Booking, error) {
					return scheduling.Booking{}, tt.err
				},
			}, testLogger())

			_, err := srv.FindAndBook(context.Background(), mustStruct(t, map[string]any{
				"center_code": "C1",
				"document":    "D",
				"start":       "2024-01-10T09:00:00Z",
			}))
			if status.Code(err) != tt.want {
				t.Fatalf("code = %v, want %v", status.Code(err), tt.want)
			}
		})
	}
}

func TestStatusError_InternalHidesDetails(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{
		centerStockFn: func(ctx context.Context, centerCode string) ([]scheduling.StockLevel, error) {
			return nil, errors.New("connection reset by peer")
		},
	}, testLogger())

	_, err := srv.GetCenterStock(context.Background(), mustStruct(t, map[string]any{"center_code": "C1"}))
	st, _ := status.FromError(err)
	if st.Message() != "internal error" {
		t.Fatalf("message = %q, want %q", st.Message(), "internal error")
	}
}

func TestGetVaccineLot_DecodesLookupKey(t *testing.T) {
	var gotCenter, gotVaccine string
	var gotAt time.Time
	srv := NewSchedulingServer(&fakeSchedulingService{
		getVaccineLotFn: func(ctx context.Context, centerCode, vaccine string, receivedAt time.Time) (domain.VaccineLot, error) {
			gotCenter, gotVaccine, gotAt = centerCode, vaccine, receivedAt
			return domain.VaccineLot{CenterCode: centerCode, Vaccine: vaccine, ReceivedAt: receivedAt, Doses: 7}, nil
		},
	}, testLogger())

	resp, err := srv.GetVaccineLot(context.Background(), mustStruct(t, map[string]any{
		"center_code": "C1",
		"vaccine":     "V1",
		"received_at": "2024-01-10T08:00:00Z",
	}))
	if err != nil {
		t.Fatalf("GetVaccineLot error: %v", err)
	}
	if gotCenter != "C1" || gotVaccine != "V1" || !gotAt.Equal(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("lookup = %s %s %v", gotCenter, gotVaccine, gotAt)
	}
	if d := resp.GetFields()["doses"].GetNumberValue(); d != 7 {
		t.Fatalf("doses = %v, want 7", d)
	}

	_, err = srv.GetVaccineLot(context.Background(), mustStruct(t, map[string]any{"received_at": "yesterday"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}
}

func TestListVaccinesAndStats(t *testing.T) {
	srv := NewSchedulingServer(&fakeSchedulingService{
		listVaccinesFn: func(ctx context.Context) []domain.Vaccine {
			return []domain.Vaccine{{Name: "V2", RequiredDoses: 2, IntervalDays: 21}, {Name: "V1", RequiredDoses: 1}}
		},
		statsFn: func(ctx context.Context) scheduling.Stats {
			return scheduling.Stats{Persons: 3, Vaccines: 2, Lots: 4, Centers: 1}
		},
	}, testLogger())

	resp, err := srv.ListVaccines(context.Background(), mustStruct(t, map[string]any{}))
	if err != nil {
		t.Fatalf("ListVaccines error: %v", err)
	}
	vs := resp.GetFields()["vaccines"].GetListValue().GetValues()
	if len(vs) != 2 {
		t.Fatalf("vaccines = %d, want 2", len(vs))
	}
	first := vs[0].GetStructValue().GetFields()
	if first["name"].GetStringValue() != "V2" || first["interval_days"].GetNumberValue() != 21 {
		t.Fatalf("first vaccine = %v", first)
	}

	resp, err = srv.GetStats(context.Background(), mustStruct(t, map[string]any{}))
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	f := resp.GetFields()
	if f["persons"].GetNumberValue() != 3 || f["lots"].GetNumberValue() != 4 || f["centers"].GetNumberValue() != 1 {
		t.Fatalf("stats = %v", f)
	}
}

func TestRequestTimeoutInterceptor(t *testing.T) {
	interceptor := RequestTimeoutInterceptor(time.Second)

	var deadline time.Time
	handler := func(ctx context.Context, req any) (any, error) {
		d, ok := ctx.Deadline()
		if !ok {
			t.Fatalf("handler context has no deadline")
		}
		deadline = d
		return nil, nil
	}

	before := time.Now()
	if _, err := interceptor(context.Background(), nil, nil, handler); err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if deadline.Before(before) || deadline.After(before.Add(2*time.Second)) {
		t.Fatalf("deadline = %v, want about 1s after %v", deadline, before)
	}

	existing := time.Now().Add(time.Hour)
	ctx, cancel := context.WithDeadline(context.Background(), existing)
	defer cancel()
	if _, err := interceptor(ctx, nil, nil, handler); err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if !deadline.Equal(existing) {
		t.Fatalf("deadline = %v, want caller deadline %v", deadline, existing)
	}
}
