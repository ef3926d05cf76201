package memory

import (
	"fmt"

	"github.com/google/uuid"

	"vaxbook/internal/domain"
	"vaxbook/internal/store"
)

// Registry holds persons, the vaccine catalogue and health centers in memory.
// It is not safe for concurrent use; callers serialize access.
type Registry struct {
	persons      map[string]domain.Person
	vaccines     map[string]domain.Vaccine
	vaccineOrder []string
	centers      map[string]*domain.HealthCenter
	centerOrder  []string
	lots         []domain.VaccineLot
	lotIndex     map[uuid.UUID]int
}

var (
	_ store.PersonRegistry  = (*Registry)(nil)
	_ store.VaccineRegistry = (*Registry)(nil)
	_ store.CenterRegistry  = (*Registry)(nil)
)

func NewRegistry() *Registry {
	return &Registry{
		persons:  make(map[string]domain.Person),
		vaccines: make(map[string]domain.Vaccine),
		centers:  make(map[string]*domain.HealthCenter),
		lotIndex: make(map[uuid.UUID]int),
	}
}

func (r *Registry) AddPerson(p domain.Person) error {
	if _, exists := r.persons[p.Document]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicatedPerson, p.Document)
	}
	r.persons[p.Document] = p
	return nil
}

// RegisterVaccine adds v to the catalogue unless a vaccine with that name already
// exists, in which case the existing definition wins and is returned.
func (r *Registry) RegisterVaccine(v domain.Vaccine) domain.Vaccine {
	if existing, ok := r.vaccines[v.Name]; ok {
		return existing
	}
	r.vaccines[v.Name] = v
	r.vaccineOrder = append(r.vaccineOrder, v.Name)
	return v
}

// EnsureCenter returns the center with code, creating it if needed.
func (r *Registry) EnsureCenter(code string) *domain.HealthCenter {
	if c, ok := r.centers[code]; ok {
		return c
	}
	c := domain.NewHealthCenter(code)
	r.centers[code] = c
	r.centerOrder = append(r.centerOrder, code)
	return c
}

// AddVaccineLot registers the lot's vaccine and center if they are new and adds the
// lot's doses to the center's stock on the lot's date. A lot sharing an ID with a
// recorded one is merged into it.
func (r *Registry) AddVaccineLot(v domain.Vaccine, lot domain.VaccineLot) error {
	registered := r.RegisterVaccine(v)
	center := r.EnsureCenter(lot.CenterCode)
	if err := center.Stock.Update(domain.DateOf(lot.ReceivedAt), registered.Name, lot.Doses); err != nil {
		return err
	}

	if lot.ID == uuid.Nil {
		lot.ID = domain.LotID(lot.CenterCode, lot.Vaccine, lot.ReceivedAt)
	}
	if i, ok := r.lotIndex[lot.ID]; ok {
		r.lots[i].Doses += lot.Doses
		return nil
	}
	r.lotIndex[lot.ID] = len(r.lots)
	r.lots = append(r.lots, lot)
	return nil
}

func (r *Registry) Lot(id uuid.UUID) (domain.VaccineLot, bool) {
	i, ok := r.lotIndex[id]
	if !ok {
		return domain.VaccineLot{}, false
	}
	return r.lots[i], true
}

// Lots lists recorded lots in arrival order.
func (r *Registry) Lots() []domain.VaccineLot {
	return append([]domain.VaccineLot(nil), r.lots...)
}

func (r *Registry) FindByDocument(document string) (domain.Person, bool) {
	p, ok := r.persons[document]
	return p, ok
}

func (r *Registry) FindByName(name string) (domain.Vaccine, bool) {
	v, ok := r.vaccines[name]
	return v, ok
}

func (r *Registry) FindByCode(code string) (*domain.HealthCenter, bool) {
	c, ok := r.centers[code]
	return c, ok
}

// Centers lists centers in creation order.
func (r *Registry) Centers() []*domain.HealthCenter {
	out := make([]*domain.HealthCenter, 0, len(r.centerOrder))
	for _, code := range r.centerOrder {
		out = append(out, r.centers[code])
	}
	return out
}

// Vaccines lists the catalogue in registration order.
func (r *Registry) Vaccines() []domain.Vaccine {
	out := make([]domain.Vaccine, 0, len(r.vaccineOrder))
	for _, name := range r.vaccineOrder {
		out = append(out, r.vaccines[name])
	}
	return out
}

func (r *Registry) PersonCount() int {
	return len(r.persons)
}
