package memory

import (
	"errors"
	"testing"
	"time"

	"vaxbook/internal/domain"
)

func TestRegistry_AddPersonRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.AddPerson(domain.Person{Document: "DOC1", Name: "Ana"}); err != nil {
		t.Fatalf("AddPerson error: %v", err)
	}
	err := r.AddPerson(domain.Person{Document: "DOC1", Name: "Other"})
	if !errors.Is(err, domain.ErrDuplicatedPerson) {
		t.Fatalf("error = %v, want %v", err, domain.ErrDuplicatedPerson)
	}
	p, ok := r.FindByDocument("DOC1")
	if !ok || p.Name != "Ana" {
		t.Fatalf("FindByDocument = %+v, %v", p, ok)
	}
	if r.PersonCount() != 1 {
		t.Fatalf("PersonCount = %d, want 1", r.PersonCount())
	}
}

func TestRegistry_AddVaccineLotCreatesCenterAndStock(t *testing.T) {
	r := NewRegistry()
	ts := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	v := domain.Vaccine{Name: "V1", RequiredDoses: 1}

	if err := r.AddVaccineLot(v, domain.VaccineLot{CenterCode: "C1", Vaccine: "V1", ReceivedAt: ts, Doses: 5}); err != nil {
		t.Fatalf("AddVaccineLot error: %v", err)
	}
	if err := r.AddVaccineLot(v, domain.VaccineLot{CenterCode: "C1", Vaccine: "V1", ReceivedAt: ts.Add(time.Hour), Doses: 2}); err != nil {
		t.Fatalf("AddVaccineLot error: %v", err)
	}

	c, ok := r.FindByCode("C1")
	if !ok {
		t.Fatalf("expected center C1")
	}
	day, ok := c.Stock.Find(domain.DateOf(ts))
	if !ok {
		t.Fatalf("expected stock bucket")
	}
	if got := day.Doses("V1"); got != 7 {
		t.Fatalf("doses = %d, want 7", got)
	}
	if len(r.Centers()) != 1 {
		t.Fatalf("centers = %d, want 1", len(r.Centers()))
	}
}

func TestRegistry_RegisterVaccineKeepsFirstDefinition(t *testing.T) {
	r := NewRegistry()
	r.RegisterVaccine(domain.Vaccine{Name: "V2", RequiredDoses: 2, IntervalDays: 21})
	r.RegisterVaccine(domain.Vaccine{Name: "V1", RequiredDoses: 1})
	got := r.RegisterVaccine(domain.Vaccine{Name: "V2", RequiredDoses: 3, IntervalDays: 7})

	if got.RequiredDoses != 2 || got.IntervalDays != 21 {
		t.Fatalf("RegisterVaccine = %+v, want first definition", got)
	}
	vs := r.Vaccines()
	if len(vs) != 2 || vs[0].Name != "V2" || vs[1].Name != "V1" {
		t.Fatalf("Vaccines = %+v, want V2,V1", vs)
	}
}

func TestRegistry_AddVaccineLotMergesSameDelivery(t *testing.T) {
	r := NewRegistry()
	ts := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	v := domain.Vaccine{Name: "V1", RequiredDoses: 1}

	for _, doses := range []int{3, 4} {
		if err := r.AddVaccineLot(v, domain.VaccineLot{CenterCode: "C1", Vaccine: "V1", ReceivedAt: ts, Doses: doses}); err != nil {
			t.Fatalf("AddVaccineLot(%d) error: %v", doses, err)
		}
	}

	lots := r.Lots()
	if len(lots) != 1 {
		t.Fatalf("lots = %d, want 1", len(lots))
	}
	lot, ok := r.Lot(domain.LotID("C1", "V1", ts))
	if !ok || lot.Doses != 7 {
		t.Fatalf("Lot = %+v, %v, want 7 doses", lot, ok)
	}
	c, _ := r.FindByCode("C1")
	day, _ := c.Stock.Find(domain.DateOf(ts))
	if got := day.Doses("V1"); got != 7 {
		t.Fatalf("stock = %d, want 7", got)
	}
}
