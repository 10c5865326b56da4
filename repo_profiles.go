package auth

import (
	"context"

	"github.com/uptrace/bun"
)

// Profiles stores per-user contact details.
type Profiles interface {
	GetByUserID(ctx context.Context, userID int64) (*Profile, error)
	Create(ctx context.Context, record *Profile) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
	Update(ctx context.Context, record *Profile) (*Profile, error)
}

type profiles struct {
	db *bun.DB
}

var _ Profiles = (*profiles)(nil)

func NewProfilesRepository(db *bun.DB) Profiles {
	return &profiles{db: db}
}

func (a *profiles) GetByUserID(ctx context.Context, userID int64) (*Profile, error) {
	record := &Profile{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"user_id": userID})
	}
	return record, nil
}

func (a *profiles) Create(ctx context.Context, record *Profile) (*Profile, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	if _, err := tx.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (a *profiles) Update(ctx context.Context, record *Profile) (*Profile, error) {
	if _, err := a.db.NewUpdate().
		Model(record).
		WherePK().
		Returning("*").
		Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}
