package scheduling

import (
	"vaxbook/internal/domain"
	"vaxbook/internal/store"
)

// Finder answers stock questions against a center's calendar.
type Finder struct {
	vaccines store.VaccineRegistry
}

func NewFinder(vaccines store.VaccineRegistry) Finder {
	return Finder{vaccines: vaccines}
}

// HasCapacity reports whether v can be booked starting on date. A single-dose vaccine
// needs one dose on date. A multi-dose vaccine needs a full course of doses on the
// follow-up date, which is materialized in the calendar if missing; the first date
// itself is not checked here.
func (f Finder) HasCapacity(cal *domain.StockCalendar, date domain.Date, v domain.Vaccine) bool {
	if !v.MultiDose() {
		day, ok := cal.Find(date)
		return ok && day.Doses(v.Name) >= 1
	}
	follow := cal.ExpandRight(date.AddDays(v.IntervalDays))
	return follow.Doses(v.Name) >= v.RequiredDoses
}

// FirstAvailable returns the first vaccine, in registration order, whose stock on date
// alone covers its full course.
func (f Finder) FirstAvailable(cal *domain.StockCalendar, date domain.Date) (domain.Vaccine, bool) {
	day, ok := cal.Find(date)
	if !ok {
		return domain.Vaccine{}, false
	}
	for _, e := range day.Entries() {
		v, ok := f.vaccines.FindByName(e.Vaccine)
		if !ok {
			continue
		}
		if e.Doses >= v.RequiredDoses {
			return v, true
		}
	}
	return domain.Vaccine{}, false
}

// FirstBookable returns the first vaccine, in registration order, that FindAndBook can
// commit on date: at least one dose on date and, for a multi-dose vaccine, capacity on
// its follow-up date.
func (f Finder) FirstBookable(cal *domain.StockCalendar, date domain.Date) (domain.Vaccine, bool) {
	day, ok := cal.Find(date)
	if !ok {
		return domain.Vaccine{}, false
	}
	for _, e := range day.Entries() {
		if e.Doses < 1 {
			continue
		}
		v, ok := f.vaccines.FindByName(e.Vaccine)
		if !ok {
			continue
		}
		if !v.MultiDose() || f.HasCapacity(cal, date, v) {
			return v, true
		}
	}
	return domain.Vaccine{}, false
}
