package domain

import (
	"fmt"
	"slices"
	"sort"
)

// StockEntry is the remaining dose count of one vaccine on one day.
type StockEntry struct {
	Vaccine string
	Doses   int
}

// DailyStock holds the dose counts of a center for one date, vaccines in registration order.
type DailyStock struct {
	Date    Date
	entries []StockEntry
}

// Doses returns the remaining doses of vaccine, zero when the vaccine was never stocked.
func (d *DailyStock) Doses(vaccine string) int {
	if i := d.index(vaccine); i >= 0 {
		return d.entries[i].Doses
	}
	return 0
}

// Entries returns a copy of the day's entries in registration order.
func (d *DailyStock) Entries() []StockEntry {
	return slices.Clone(d.entries)
}

func (d *DailyStock) index(vaccine string) int {
	for i := range d.entries {
		if d.entries[i].Vaccine == vaccine {
			return i
		}
	}
	return -1
}

// StockCalendar is the per-center sequence of daily stock, strictly ordered by date.
// It is not safe for concurrent use.
type StockCalendar struct {
	days     []*DailyStock
	vaccines []string
}

func NewStockCalendar() *StockCalendar {
	return &StockCalendar{}
}

// Len is the number of materialized dates.
func (c *StockCalendar) Len() int {
	return len(c.days)
}

// Find returns the bucket for date without creating it.
func (c *StockCalendar) Find(date Date) (*DailyStock, bool) {
	i, ok := c.search(date)
	if !ok {
		return nil, false
	}
	return c.days[i], true
}

// ExpandRight makes sure a bucket exists for date and returns it.
func (c *StockCalendar) ExpandRight(date Date) *DailyStock {
	i, ok := c.search(date)
	if ok {
		return c.days[i]
	}
	day := &DailyStock{Date: date, entries: make([]StockEntry, 0, len(c.vaccines))}
	for _, v := range c.vaccines {
		day.entries = append(day.entries, StockEntry{Vaccine: v})
	}
	c.days = slices.Insert(c.days, i, day)
	return day
}

// Update adds delta doses of vaccine on date, creating the bucket if needed.
// The calendar is left untouched when the result would be negative.
func (c *StockCalendar) Update(date Date, vaccine string, delta int) error {
	current := 0
	if day, ok := c.Find(date); ok {
		current = day.Doses(vaccine)
	}
	if current+delta < 0 {
		return fmt.Errorf("%w: %s on %s has %d doses, delta %d", ErrNegativeStock, vaccine, date, current, delta)
	}

	c.register(vaccine)
	day := c.ExpandRight(date)
	i := day.index(vaccine)
	if i < 0 {
		day.entries = append(day.entries, StockEntry{Vaccine: vaccine})
		i = len(day.entries) - 1
	}
	day.entries[i].Doses += delta
	return nil
}

// Days returns copies of every bucket in date order.
func (c *StockCalendar) Days() []DailyStock {
	out := make([]DailyStock, 0, len(c.days))
	for _, d := range c.days {
		out = append(out, DailyStock{Date: d.Date, entries: d.Entries()})
	}
	return out
}

func (c *StockCalendar) register(vaccine string) {
	if !slices.Contains(c.vaccines, vaccine) {
		c.vaccines = append(c.vaccines, vaccine)
	}
}

// search returns the index of date, or the index it would be inserted at.
func (c *StockCalendar) search(date Date) (int, bool) {
	i := sort.Search(len(c.days), func(i int) bool {
		return !c.days[i].Date.Before(date)
	})
	return i, i < len(c.days) && c.days[i].Date.Equal(date)
}
