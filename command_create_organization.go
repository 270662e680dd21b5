package auth

import (
	"context"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type CreateOrganizationMessage struct {
	Name       string `json:"name" example:"Acme Corp" doc:"Organization display name."`
	Slug       string `json:"slug" example:"acme-corp" doc:"Globally unique URL-safe identifier."`
	Actor      ClaimsSet
	ActorID    uuid.UUID
	OnResponse func(org *Organization)
}

func (p CreateOrganizationMessage) Type() string { return "organization.create" }

// Validate will run validation rules
func (p CreateOrganizationMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Slug, validation.Required, validation.Length(2, 100), validation.Match(slugPattern)),
	)
}

// CreateOrganizationHandler creates tenants. Only the operator may create
// organizations; members are bound to exactly one org and cannot mint more.
type CreateOrganizationHandler struct {
	repo         RepositoryManager
	activitySink ActivitySink
}

func NewCreateOrganizationHandler(repo RepositoryManager, sink ActivitySink) *CreateOrganizationHandler {
	return &CreateOrganizationHandler{
		repo:         repo,
		activitySink: normalizeActivitySink(sink),
	}
}

func (h *CreateOrganizationHandler) Execute(ctx context.Context, event CreateOrganizationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during organization creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateOrganizationHandler) execute(ctx context.Context, event CreateOrganizationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Actor == nil || !event.Actor.IsSuperAdmin() {
		return ErrForbidden
	}

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid organization payload")
	}

	if _, err := h.repo.Organizations().GetBySlug(ctx, event.Slug); err == nil {
		return goerrors.New("organization slug already exists", goerrors.CategoryConflict).
			WithMetadata(map[string]any{"slug": event.Slug})
	} else if !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check slug uniqueness")
	}

	now := time.Now()
	org := &Organization{
		ID:        uuid.New(),
		Name:      event.Name,
		Slug:      event.Slug,
		CreatedBy: event.ActorID,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	org, err := h.repo.Organizations().Create(ctx, org)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create organization")
	}

	// best effort, sink failures never block the create
	_ = h.activitySink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventOrganizationCreated,
		Actor:      ActorRef{ID: event.ActorID.String(), Type: "user"},
		OrgID:      org.ID.String(),
		Metadata:   map[string]any{"slug": org.Slug},
		OccurredAt: now,
	})

	if event.OnResponse != nil {
		event.OnResponse(org)
	}

	return nil
}
