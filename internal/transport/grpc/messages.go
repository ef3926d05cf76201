package grpc

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"vaxbook/internal/domain"
	"vaxbook/internal/service/scheduling"
)

const birthdateLayout = "2006-01-02"

type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func intField(req *structpb.Struct, key string) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, &requestError{msg: key + " must be a number"}
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, &requestError{msg: key + " must be an integer"}
	}
	return int(n.NumberValue), nil
}

func timeField(req *structpb.Struct, key string) (time.Time, error) {
	raw := stringField(req, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &requestError{msg: key + " must be an RFC 3339 timestamp"}
	}
	return t, nil
}

func dateField(req *structpb.Struct, key string) (time.Time, error) {
	raw := stringField(req, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(birthdateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, &requestError{msg: fmt.Sprintf("%s must be a %s date", key, birthdateLayout)}
	}
	return t, nil
}

func personValue(p domain.Person) map[string]any {
	m := map[string]any{
		"document":    p.Document,
		"name":        p.Name,
		"surname":     p.Surname,
		"email":       p.Email,
		"address":     p.Address,
		"center_code": p.CenterCode,
	}
	if !p.Birthdate.IsZero() {
		m["birthdate"] = p.Birthdate.Format(birthdateLayout)
	}
	return m
}

func lotValue(l domain.VaccineLot) map[string]any {
	return map[string]any{
		"id":          l.ID.String(),
		"center_code": l.CenterCode,
		"vaccine":     l.Vaccine,
		"received_at": l.ReceivedAt.UTC().Format(time.RFC3339),
		"doses":       l.Doses,
	}
}

func appointmentValue(a domain.Appointment) map[string]any {
	ts := a.Timestamp.UTC()
	return map[string]any{
		"id":          a.ID.String(),
		"center_code": a.CenterCode,
		"document":    a.Document,
		"vaccine":     a.Vaccine,
		"date":        a.Date().String(),
		"time":        ts.Format("15:04"),
		"timestamp":   ts.Format(time.RFC3339),
		"reserved":    a.Reserved,
	}
}

func appointmentList(appts []domain.Appointment) []any {
	out := make([]any, 0, len(appts))
	for _, a := range appts {
		out = append(out, appointmentValue(a))
	}
	return out
}

func bookingValue(b scheduling.Booking) map[string]any {
	return map[string]any{
		"center_code":        b.CenterCode,
		"document":           b.Document,
		"vaccine":            b.Vaccine.Name,
		"required_doses":     b.Vaccine.RequiredDoses,
		"interval_days":      b.Vaccine.IntervalDays,
		"search_offset_days": b.SearchOffset,
		"appointments":       appointmentList(b.Appointments),
	}
}

func stockValue(centerCode string, levels []scheduling.StockLevel) map[string]any {
	rows := make([]any, 0, len(levels))
	for _, l := range levels {
		rows = append(rows, map[string]any{
			"date":    l.Date.String(),
			"vaccine": l.Vaccine,
			"doses":   l.Doses,
		})
	}
	return map[string]any{
		"center_code": centerCode,
		"stock":       rows,
	}
}

func vaccineValue(v domain.Vaccine) map[string]any {
	return map[string]any{
		"name":           v.Name,
		"required_doses": v.RequiredDoses,
		"interval_days":  v.IntervalDays,
	}
}

func vaccineList(vs []domain.Vaccine) []any {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		out = append(out, vaccineValue(v))
	}
	return out
}

func lotList(lots []domain.VaccineLot) []any {
	out := make([]any, 0, len(lots))
	for _, l := range lots {
		out = append(out, lotValue(l))
	}
	return out
}

func statsValue(s scheduling.Stats) map[string]any {
	return map[string]any{
		"persons":  s.Persons,
		"vaccines": s.Vaccines,
		"lots":     s.Lots,
		"centers":  s.Centers,
	}
}
