package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type BootstrapSuperAdminMessage struct {
	UID         string `json:"uid" doc:"Identity provider uid of the operator account."`
	Email       string `json:"email" example:"ops@example.com" doc:"Operator email."`
	DisplayName string `json:"display_name,omitempty"`
	OnResponse  func(user *User)
}

func (p BootstrapSuperAdminMessage) Type() string { return "superadmin.bootstrap" }

// Validate will run validation rules
func (p BootstrapSuperAdminMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UID, validation.Required),
		validation.Field(&p.Email, validation.Required, is.Email),
	)
}

// BootstrapSuperAdminHandler creates the operator record out-of-band, before
// any invite exists. It is meant for a one-time setup script and is
// idempotent: re-running it finds the existing record and returns it. Once
// the record exists, recreating the operator *identity* needs no invite
// either, because the pre-creation gate approves any email bound to the
// operator sentinel.
type BootstrapSuperAdminHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewBootstrapSuperAdminHandler(repo RepositoryManager) *BootstrapSuperAdminHandler {
	return &BootstrapSuperAdminHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the default logger.
func (h *BootstrapSuperAdminHandler) WithLogger(logger Logger) *BootstrapSuperAdminHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *BootstrapSuperAdminHandler) Execute(ctx context.Context, event BootstrapSuperAdminMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during operator bootstrap",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *BootstrapSuperAdminHandler) execute(ctx context.Context, event BootstrapSuperAdminMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid bootstrap payload")
	}

	if existing, err := h.repo.Users().GetByProviderUID(ctx, event.UID); err == nil {
		if !existing.IsSuperAdmin() {
			return goerrors.New("identity already exists as a regular member", goerrors.CategoryConflict).
				WithMetadata(map[string]any{"uid": event.UID})
		}
		h.logger.Info("operator record already exists for %s", event.UID)
		if event.OnResponse != nil {
			event.OnResponse(existing)
		}
		return nil
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check operator record")
	}

	if existing, err := h.repo.Users().GetSuperAdminByEmail(ctx, event.Email); err == nil && existing != nil {
		return goerrors.New("an operator record already exists for this email", goerrors.CategoryConflict).
			WithMetadata(map[string]any{"email": event.Email})
	} else if err != nil && !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check operator email")
	}

	now := time.Now()
	user := &User{
		ProviderUID: event.UID,
		Email:       event.Email,
		DisplayName: event.DisplayName,
		Role:        RoleSuperAdmin,
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}

	user, err := h.repo.Users().Create(ctx, user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create operator record")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
