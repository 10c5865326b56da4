package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Users is the bun-backed user repository. It layers the creation and
// tenancy-aware lookups this package needs on top of the UserStore contract
// the authentication services consume.
type Users interface {
	UserStore

	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*User, error)
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) GetByID(ctx context.Context, id int64) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"id": id})
	}
	return record, nil
}

func (a *users) GetByOrgEmail(ctx context.Context, orgID *int64, email string) (*User, error) {
	record := &User{}
	q := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email))

	if orgID == nil {
		q = q.Where("?TableAlias.organization_id IS NULL")
	} else {
		q = q.Where("?TableAlias.organization_id = ?", *orgID)
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"email": email})
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"email": email})
	}
	return record, nil
}

func (a *users) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]*User, error) {
	var records []*User
	q := a.db.NewSelect().Model(&records)
	for _, c := range criteria {
		q.Apply(c)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	// There is exactly one global admin. Enforced here because the model
	// cannot see the rest of the table.
	if record.IsGlobalAdmin() {
		exists, err := tx.NewSelect().
			Model((*User)(nil)).
			Where("?TableAlias.role = ?", RoleGlobalAdmin).
			Exists(ctx)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "global admin lookup failed")
		}
		if exists {
			return nil, goerrors.New("a global admin already exists", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict)
		}
	}

	if _, err := tx.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not insert user")
	}
	return record, nil
}

func (a *users) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, map[string]any{"id": id})
}

// ConsumeResetToken is the single-use guarantee: the UPDATE matches only when
// the stored watermark still equals the value the caller read, so of N
// concurrent consumers exactly one affects a row and the rest get
// ErrResetLinkUsed.
func (a *users) ConsumeResetToken(ctx context.Context, id int64, passwordHash string, prior *time.Time, usedAt time.Time) error {
	q := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_token_used_at = ?", usedAt).
		Set("updated_at = ?", usedAt).
		Where("?TableAlias.id = ?", id)

	if prior == nil {
		q = q.Where("?TableAlias.reset_token_used_at IS NULL")
	} else {
		q = q.Where("?TableAlias.reset_token_used_at = ?", *prior)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "reset token consume failed")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "reset token consume failed")
	}
	if affected == 0 {
		return ErrResetLinkUsed
	}
	return nil
}

func (a *users) MarkResetTokenSent(ctx context.Context, id int64, sentAt time.Time) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("reset_token_sent_at = ?", sentAt).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, map[string]any{"id": id})
}

func (a *users) SetActive(ctx context.Context, id int64, active bool, actor ActorRef, at time.Time) (*User, error) {
	record := &User{}
	q := a.db.NewUpdate().
		Model(record).
		Set("active = ?", active).
		Set("updated_at = ?", at).
		Where("?TableAlias.id = ?", id).
		Returning("*")

	if active {
		q = q.
			Set("activated_by_id = ?", nullableActorID(actor)).
			Set("deactivated_at = NULL").
			Set("deactivated_by_id = NULL")
	} else {
		q = q.
			Set("deactivated_at = ?", at).
			Set("deactivated_by_id = ?", nullableActorID(actor))
	}

	if _, err := q.Exec(ctx); err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"id": id})
	}
	if record.ID == 0 {
		return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{"id": id})
	}
	return record, nil
}

func nullableActorID(actor ActorRef) *int64 {
	if actor.ID == 0 {
		return nil
	}
	id := actor.ID
	return &id
}

func wrapUserLookupErr(err error, meta map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return repository.NewRecordNotFound().WithMetadata(meta)
	}
	return err
}

func requireAffected(res sql.Result, meta map[string]any) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.NewRecordNotFound().WithMetadata(meta)
	}
	return nil
}
