package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"vaxbook/internal/domain"
	"vaxbook/internal/store"
)

const uniqueViolation = "23505"

type Repository struct {
	db bun.IDB
}

var _ store.Repository = (*Repository)(nil)

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

var _ store.BookingTx = bookingTx{}

func (r *Repository) LoadDataset(ctx context.Context) (store.Dataset, error) {
	var ds store.Dataset

	if err := r.db.NewSelect().Model(&ds.Persons).OrderExpr("document ASC").Scan(ctx); err != nil {
		return store.Dataset{}, fmt.Errorf("select persons: %w", err)
	}
	if err := r.db.NewSelect().Model(&ds.Vaccines).OrderExpr("created_at ASC, name ASC").Scan(ctx); err != nil {
		return store.Dataset{}, fmt.Errorf("select vaccines: %w", err)
	}
	if err := r.db.NewSelect().Model(&ds.Lots).OrderExpr("seq ASC").Scan(ctx); err != nil {
		return store.Dataset{}, fmt.Errorf("select vaccine lots: %w", err)
	}
	if err := r.db.NewSelect().Model(&ds.Appointments).OrderExpr("scheduled_at ASC, document ASC").Scan(ctx); err != nil {
		return store.Dataset{}, fmt.Errorf("select appointments: %w", err)
	}
	return ds, nil
}

func (r *Repository) SavePerson(ctx context.Context, p domain.Person) error {
	if _, err := r.db.NewInsert().Model(&p).Exec(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// SaveVaccineLot inserts the vaccine definition unless one already exists, then the lot.
// A lot with an existing ID gets its doses added to the stored row.
func (r *Repository) SaveVaccineLot(ctx context.Context, v domain.Vaccine, lot domain.VaccineLot) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&v).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return mapError(err)
		}
		_, err = tx.NewInsert().
			Model(&lot).
			On("CONFLICT (id) DO UPDATE").
			Set("doses = ?TableAlias.doses + EXCLUDED.doses").
			Exec(ctx)
		if err != nil {
			return mapError(err)
		}
		return nil
	})
}

func (r *Repository) SaveAppointments(ctx context.Context, appts []domain.Appointment) error {
	if len(appts) == 0 {
		return nil
	}
	centerCode := appts[0].CenterCode
	for _, a := range appts[1:] {
		if a.CenterCode != centerCode {
			return fmt.Errorf("appointments span centers %s and %s", centerCode, a.CenterCode)
		}
	}
	return r.InCenterTransaction(ctx, centerCode, func(ctx context.Context, tx store.BookingTx) error {
		for _, a := range appts {
			if _, err := tx.InsertAppointment(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) DeleteAppointment(ctx context.Context, centerCode string, id uuid.UUID) error {
	return r.InCenterTransaction(ctx, centerCode, func(ctx context.Context, tx store.BookingTx) error {
		return tx.DeleteAppointment(ctx, centerCode, id)
	})
}

// InCenterTransaction runs fn holding the center's advisory lock, so writers of the same
// center are serialized across processes.
func (r *Repository) InCenterTransaction(ctx context.Context, centerCode string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCenter(ctx, tx, centerCode); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func lockCenter(ctx context.Context, tx bun.Tx, centerCode string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "center:"+centerCode).Exec(ctx)
	return err
}

func (b bookingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	if _, err := b.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return m, nil
}

func (b bookingTx) DeleteAppointment(ctx context.Context, centerCode string, id uuid.UUID) error {
	res, err := b.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("center_code = ?", centerCode).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
