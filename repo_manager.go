package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the atomic multi-record
// write unit the materializer depends on. It wraps a single shared *bun.DB
// that is constructed once per process and injected explicitly; there is no
// hidden global handle and no implicit re-initialization.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Invites() Invites
	Organizations() Organizations
}

type mngr struct {
	db    *bun.DB
	users Users
	invs  Invites
	orgs  Organizations
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:    db,
		users: NewUsersRepository(db),
		invs:  NewInvitesRepository(db),
		orgs:  NewOrganizationsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return stderrors.New("repository users should be initialized")
	}

	if m.invs == nil {
		return stderrors.New("repository invites should be initialized")
	}

	if m.orgs == nil {
		return stderrors.New("repository organizations should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Invites() Invites {
	return m.invs
}

func (m mngr) Organizations() Organizations {
	return m.orgs
}

func isNoRows(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
