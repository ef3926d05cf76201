// Package http serves the operational HTTP surface: health, metrics and read-only
// projections of the scheduling state.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"vaxbook/internal/domain"
	"vaxbook/internal/service/scheduling"
)

type readService interface {
	PersonAppointments(ctx context.Context, document string) ([]domain.Appointment, error)
	CenterStock(ctx context.Context, centerCode string) ([]scheduling.StockLevel, error)
	GetVaccine(ctx context.Context, name string) (domain.Vaccine, error)
	ListVaccines(ctx context.Context) []domain.Vaccine
	ListVaccineLots(ctx context.Context) []domain.VaccineLot
	Stats(ctx context.Context) scheduling.Stats
}

type Options struct {
	Service readService
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Log     *slog.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "http"))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	h := handlers{svc: opts.Service, log: log}
	r.Get("/centers/{code}/stock", h.centerStock)
	r.Get("/persons/{document}/appointments", h.personAppointments)
	r.Get("/vaccines", h.vaccines)
	r.Get("/vaccines/{name}", h.vaccine)
	r.Get("/lots", h.lots)
	r.Get("/stats", h.stats)

	return r
}

type handlers struct {
	svc readService
	log *slog.Logger
}

type stockRow struct {
	Date    string `json:"date"`
	Vaccine string `json:"vaccine"`
	Doses   int    `json:"doses"`
}

type stockResponse struct {
	CenterCode string     `json:"center_code"`
	Stock      []stockRow `json:"stock"`
}

type appointmentResponse struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	CenterCode string `json:"center_code"`
	Vaccine    string `json:"vaccine"`
	Reserved   bool   `json:"reserved"`
}

type appointmentsResponse struct {
	Document     string                `json:"document"`
	Appointments []appointmentResponse `json:"appointments"`
}

func (h handlers) centerStock(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	levels, err := h.svc.CenterStock(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := stockResponse{CenterCode: code, Stock: make([]stockRow, 0, len(levels))}
	for _, l := range levels {
		resp.Stock = append(resp.Stock, stockRow{Date: l.Date.String(), Vaccine: l.Vaccine, Doses: l.Doses})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h handlers) personAppointments(w http.ResponseWriter, r *http.Request) {
	document := chi.URLParam(r, "document")
	appts, err := h.svc.PersonAppointments(r.Context(), document)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := appointmentsResponse{Document: document, Appointments: make([]appointmentResponse, 0, len(appts))}
	for _, a := range appts {
		ts := a.Timestamp.UTC()
		resp.Appointments = append(resp.Appointments, appointmentResponse{
			ID:         a.ID.String(),
			Date:       a.Date().String(),
			Time:       ts.Format("15:04"),
			CenterCode: a.CenterCode,
			Vaccine:    a.Vaccine,
			Reserved:   a.Reserved,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type vaccineResponse struct {
	Name          string `json:"name"`
	RequiredDoses int    `json:"required_doses"`
	IntervalDays  int    `json:"interval_days"`
}

type lotResponse struct {
	ID         string `json:"id"`
	CenterCode string `json:"center_code"`
	Vaccine    string `json:"vaccine"`
	ReceivedAt string `json:"received_at"`
	Doses      int    `json:"doses"`
}

type statsResponse struct {
	Persons  int `json:"persons"`
	Vaccines int `json:"vaccines"`
	Lots     int `json:"lots"`
	Centers  int `json:"centers"`
}

func toVaccineResponse(v domain.Vaccine) vaccineResponse {
	return vaccineResponse{Name: v.Name, RequiredDoses: v.RequiredDoses, IntervalDays: v.IntervalDays}
}

func (h handlers) vaccines(w http.ResponseWriter, r *http.Request) {
	vs := h.svc.ListVaccines(r.Context())
	out := make([]vaccineResponse, 0, len(vs))
	for _, v := range vs {
		out = append(out, toVaccineResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"vaccines": out})
}

func (h handlers) vaccine(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVaccine(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVaccineResponse(v))
}

func (h handlers) lots(w http.ResponseWriter, r *http.Request) {
	lots := h.svc.ListVaccineLots(r.Context())
	out := make([]lotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, lotResponse{
			ID:         l.ID.String(),
			CenterCode: l.CenterCode,
			Vaccine:    l.Vaccine,
			ReceivedAt: l.ReceivedAt.UTC().Format(time.RFC3339),
			Doses:      l.Doses,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"lots": out})
}

func (h handlers) stats(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Stats(r.Context())
	writeJSON(w, http.StatusOK, statsResponse{Persons: s.Persons, Vaccines: s.Vaccines, Lots: s.Lots, Centers: s.Centers})
}

func (h handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": vErr.Error()})
	case errors.Is(err, domain.ErrPersonNotFound),
		errors.Is(err, domain.ErrHealthCenterNotFound),
		errors.Is(err, domain.ErrVaccineNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.log.Error("request failed", slog.Any("err", err), slog.String("route", r.URL.Path))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug(
				"http request",
				slog.String("method", r.Method),
				slog.String("route", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
