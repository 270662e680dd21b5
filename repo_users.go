package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the membership record repository.
type Users interface {
	repository.Repository[*User]

	GetByProviderUID(ctx context.Context, uid string) (*User, error)
	GetByProviderUIDTx(ctx context.Context, tx bun.IDB, uid string) (*User, error)
	GetSuperAdminByEmail(ctx context.Context, email string) (*User, error)
	GetSuperAdminByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
	UpdateMembership(ctx context.Context, id uuid.UUID, role MemberRole, orgID *uuid.UUID) (*User, error)
	UpdateMembershipTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role MemberRole, orgID *uuid.UUID) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*User, error)
	DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByProviderUID(ctx context.Context, uid string) (*User, error) {
	return a.GetByProviderUIDTx(ctx, a.db, uid)
}

func (a *users) GetByProviderUIDTx(ctx context.Context, tx bun.IDB, uid string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.provider_uid = ?", uid).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"provider_uid": uid,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetSuperAdminByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetSuperAdminByEmailTx(ctx, a.db, email)
}

func (a *users) GetSuperAdminByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.member_role = ?", RoleSuperAdmin).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNoRows(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) UpdateMembership(ctx context.Context, id uuid.UUID, role MemberRole, orgID *uuid.UUID) (*User, error) {
	return a.UpdateMembershipTx(ctx, a.db, id, role, orgID)
}

// UpdateMembershipTx rewrites the role/org binding. The next sign-in
// re-validation makes the change authoritative; callers that cannot wait
// push the fresh claims through the IdentityStore as well.
func (a *users) UpdateMembershipTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role MemberRole, orgID *uuid.UUID) (*User, error) {
	now := time.Now()
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("member_role = ?", role).
		Set("org_id = ?", orgID).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	record := &User{}
	if err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (a *users) Deactivate(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.DeactivateTx(ctx, a.db, id)
}

// DeactivateTx clears the role binding but keeps the record. A present
// record with no role is the "deactivated" state the sign-in re-validation
// rejects; deleting the row instead would read as a brand-new identity.
func (a *users) DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return a.UpdateMembershipTx(ctx, tx, id, "", nil)
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil && record.ProviderUID != "" {
		if id, err := UserIDFromProviderUID(record.ProviderUID); err == nil {
			record.ID = id
		}
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
