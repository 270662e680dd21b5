package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Invites is the invitation repository. Pending-invite queries are ordered
// by created_at so concurrent lookups for the same email always select the
// same invite.
type Invites interface {
	repository.Repository[*Invite]

	FindPendingByEmail(ctx context.Context, email string) ([]*Invite, error)
	FindPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) ([]*Invite, error)
	FindConsumableByEmail(ctx context.Context, email string, now time.Time) ([]*Invite, error)
	FindConsumableByEmailTx(ctx context.Context, tx bun.IDB, email string, now time.Time) ([]*Invite, error)
	HasConsumable(ctx context.Context, email string, now time.Time) (bool, error)
	AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, now time.Time) error
	DeletePending(ctx context.Context, id uuid.UUID) error
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Invite, error)
}

type invites struct {
	repository.Repository[*Invite]
	db *bun.DB
}

var (
	_ Invites                        = (*invites)(nil)
	_ repository.Repository[*Invite] = (*invites)(nil)
)

func NewInvitesRepository(db *bun.DB) Invites {
	repo := repository.NewRepository[*Invite](db, repository.ModelHandlers[*Invite]{
		NewRecord: func() *Invite { return &Invite{} },
		GetID: func(i *Invite) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Invite, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &invites{
		Repository: repo,
		db:         db,
	}
}

func (a *invites) FindPendingByEmail(ctx context.Context, email string) ([]*Invite, error) {
	return a.FindPendingByEmailTx(ctx, a.db, email)
}

// FindPendingByEmailTx returns pending invites regardless of expiry.
// Materialization uses this form: an approved sign-up must be allowed to
// land even if the invite's clock ticked past expiry during the async gap
// between creation and the post-creation hook.
func (a *invites) FindPendingByEmailTx(ctx context.Context, tx bun.IDB, email string) ([]*Invite, error) {
	var records []*Invite
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.status = ?", InviteStatusPending).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *invites) FindConsumableByEmail(ctx context.Context, email string, now time.Time) ([]*Invite, error) {
	return a.FindConsumableByEmailTx(ctx, a.db, email, now)
}

// FindConsumableByEmailTx returns pending, unexpired invites. The
// pre-creation gate uses this form.
func (a *invites) FindConsumableByEmailTx(ctx context.Context, tx bun.IDB, email string, now time.Time) ([]*Invite, error) {
	var records []*Invite
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.status = ?", InviteStatusPending).
		Where("?TableAlias.expires_at > ?", now).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *invites) HasConsumable(ctx context.Context, email string, now time.Time) (bool, error) {
	count, err := a.db.NewSelect().
		Model((*Invite)(nil)).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.status = ?", InviteStatusPending).
		Where("?TableAlias.expires_at > ?", now).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AcceptTx flips a pending invite to accepted. It is guarded on the current
// status so a duplicate materialization cannot consume the invite twice.
func (a *invites) AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, now time.Time) error {
	res, err := tx.NewUpdate().
		Model((*Invite)(nil)).
		Set("status = ?", InviteStatusAccepted).
		Set("accepted_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", InviteStatusPending).
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id":     id.String(),
				"status": InviteStatusPending,
			})
	}

	return nil
}

func (a *invites) DeletePending(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*Invite)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", InviteStatusPending).
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

func (a *invites) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Invite, error) {
	var records []*Invite
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.org_id = ?", orgID).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
