package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Organizations is the tenant repository.
type Organizations interface {
	repository.Repository[*Organization]

	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Organization, error)
	IncrementMemberCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, delta int) error
}

type organizations struct {
	repository.Repository[*Organization]
	db *bun.DB
}

var (
	_ Organizations                        = (*organizations)(nil)
	_ repository.Repository[*Organization] = (*organizations)(nil)
)

func NewOrganizationsRepository(db *bun.DB) Organizations {
	repo := repository.NewRepository[*Organization](db, repository.ModelHandlers[*Organization]{
		NewRecord: func() *Organization { return &Organization{} },
		GetID: func(o *Organization) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Organization, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})

	return &organizations{
		Repository: repo,
		db:         db,
	}
}

func (a *organizations) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return a.GetBySlugTx(ctx, a.db, slug)
}

func (a *organizations) GetBySlugTx(ctx context.Context, tx bun.IDB, slug string) (*Organization, error) {
	record := &Organization{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.slug = ?", slug).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"slug": slug,
				})
		}
		return nil, err
	}

	return record, nil
}

// IncrementMemberCountTx adjusts the counter in place. It must only run
// inside the same transaction as the membership mutation it accounts for;
// the counter is never recomputed by scanning users.
func (a *organizations) IncrementMemberCountTx(ctx context.Context, tx bun.IDB, id uuid.UUID, delta int) error {
	now := time.Now()
	res, err := tx.NewUpdate().
		Model((*Organization)(nil)).
		Set("member_count = member_count + ?", delta).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}
