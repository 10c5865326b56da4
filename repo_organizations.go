package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Organizations is the tenancy lookup repository.
type Organizations interface {
	OrganizationStore

	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Organization, error)
	GetByCode(ctx context.Context, code string) (*Organization, error)
	Create(ctx context.Context, record *Organization) (*Organization, error)
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Organization, error)
}

type organizations struct {
	db *bun.DB
}

var _ Organizations = (*organizations)(nil)

func NewOrganizationsRepository(db *bun.DB) Organizations {
	return &organizations{db: db}
}

func (a *organizations) GetByID(ctx context.Context, id int64) (*Organization, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *organizations) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Organization, error) {
	record := &Organization{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"id": id})
	}
	return record, nil
}

func (a *organizations) GetByCode(ctx context.Context, code string) (*Organization, error) {
	record := &Organization{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"code": code})
	}
	return record, nil
}

func (a *organizations) Create(ctx context.Context, record *Organization) (*Organization, error) {
	if _, err := a.db.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (a *organizations) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Organization, error) {
	var records []*Organization
	q := a.db.NewSelect().Model(&records)
	for _, c := range criteria {
		q.Apply(c)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}
