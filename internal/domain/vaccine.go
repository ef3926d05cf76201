package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Vaccine is immutable once registered.
type Vaccine struct {
	bun.BaseModel `bun:"table:vaccines"`

	Name          string    `bun:"name,pk"`
	RequiredDoses int       `bun:"required_doses,notnull"`
	IntervalDays  int       `bun:"interval_days,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (v *Vaccine) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (v Vaccine) MultiDose() bool {
	return v.RequiredDoses > 1
}

// VaccineLot is a delivery of doses of one vaccine to one center.
type VaccineLot struct {
	bun.BaseModel `bun:"table:vaccine_lots"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	CenterCode string    `bun:"center_code,notnull"`
	Vaccine    string    `bun:"vaccine_name,notnull"`
	ReceivedAt time.Time `bun:"received_at,notnull"`
	Doses      int       `bun:"doses,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (l *VaccineLot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if l.ID == uuid.Nil {
			l.ID = LotID(l.CenterCode, l.Vaccine, l.ReceivedAt)
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

// LotID derives a stable lot identifier. Deliveries of one vaccine to one center at the
// same instant share it and are stored as a single lot.
func LotID(centerCode, vaccine string, receivedAt time.Time) uuid.UUID {
	key := strings.Join([]string{centerCode, vaccine, receivedAt.UTC().Format(time.RFC3339)}, "|")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("vaxbook:vaccine_lot:"+key))
}

type Person struct {
	bun.BaseModel `bun:"table:persons"`

	Document   string    `bun:"document,pk"`
	Name       string    `bun:"name,notnull"`
	Surname    string    `bun:"surname,notnull"`
	Email      string    `bun:"email"`
	Address    string    `bun:"address"`
	CenterCode string    `bun:"center_code"`
	Birthdate  time.Time `bun:"birthdate,nullzero"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (p *Person) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}
