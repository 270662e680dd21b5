package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type UpdateMemberMessage struct {
	UserID     uuid.UUID  `json:"user_id" doc:"Membership record to update."`
	Role       MemberRole `json:"member_role,omitempty" doc:"New role; ignored when deactivating."`
	Deactivate bool       `json:"deactivate,omitempty" doc:"Clear the member's binding instead of changing it."`
	Actor      ClaimsSet
	ActorID    uuid.UUID
	OnResponse func(user *User)
}

func (p UpdateMemberMessage) Type() string { return "member.update" }

// UpdateMemberHandler changes or revokes a member's role binding. The write
// lands in the record store immediately; it becomes authoritative on the
// member's next sign-in through re-validation. To shrink that window the
// handler also pushes the fresh claims into the identity store and revokes
// outstanding refresh tokens so cached credentials die early.
type UpdateMemberHandler struct {
	repo         RepositoryManager
	identities   IdentityStore
	logger       Logger
	activitySink ActivitySink
}

func NewUpdateMemberHandler(repo RepositoryManager, identities IdentityStore, sink ActivitySink) *UpdateMemberHandler {
	return &UpdateMemberHandler{
		repo:         repo,
		identities:   normalizeIdentityStore(identities),
		logger:       defLogger{},
		activitySink: normalizeActivitySink(sink),
	}
}

// WithLogger overrides the default logger.
func (h *UpdateMemberHandler) WithLogger(logger Logger) *UpdateMemberHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateMemberHandler) Execute(ctx context.Context, event UpdateMemberMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during member update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateMemberHandler) execute(ctx context.Context, event UpdateMemberMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByID(ctx, event.UserID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return goerrors.New("member not found", goerrors.CategoryNotFound).
				WithMetadata(map[string]any{"user_id": event.UserID.String()})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load member")
	}

	if user.IsSuperAdmin() {
		// the operator cannot be edited or deactivated through this path
		return ErrForbidden
	}

	if err := h.authorize(event, user); err != nil {
		return err
	}

	var updated *User
	if event.Deactivate {
		updated, err = h.repo.Users().Deactivate(ctx, user.ID)
	} else {
		if !IsValidMemberRole(event.Role) {
			return goerrors.New("invalid member role", goerrors.CategoryValidation).
				WithMetadata(map[string]any{"role": string(event.Role)})
		}
		updated, err = h.repo.Users().UpdateMembership(ctx, user.ID, event.Role, user.OrgID)
	}
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update member")
	}

	h.propagateClaims(ctx, updated)

	eventType := ActivityEventMemberUpdated
	if event.Deactivate {
		eventType = ActivityEventMemberDeactivated
	}
	_ = h.activitySink.Record(ctx, ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{ID: event.ActorID.String(), Type: "user"},
		UserID:     updated.ProviderUID,
		Email:      updated.Email,
		OrgID:      orgIDString(updated.OrgID),
		Metadata:   map[string]any{"role": string(updated.Role)},
		OccurredAt: time.Now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(updated)
	}

	return nil
}

func (h *UpdateMemberHandler) authorize(event UpdateMemberMessage, user *User) error {
	if event.Actor == nil {
		return ErrForbidden
	}
	if event.Actor.IsSuperAdmin() {
		return nil
	}
	if !event.Actor.IsAtLeast(RoleAdmin) {
		return ErrForbidden
	}
	if user.OrgID == nil || event.Actor.OrgID() != user.OrgID.String() {
		return ErrForbidden
	}
	return nil
}

// propagateClaims best-effort pushes the new binding to the identity store.
// Failure leaves the record store authoritative; the next sign-in converges.
func (h *UpdateMemberHandler) propagateClaims(ctx context.Context, user *User) {
	claims, ok := ClaimsForUser(user)

	bag := map[string]any{}
	if ok {
		bag = claims.ClaimsMap()
	}

	if err := h.identities.SetClaims(ctx, user.ProviderUID, bag); err != nil {
		h.logger.Warn("failed to push claims for %s: %v", user.ProviderUID, err)
		return
	}

	if err := h.identities.RevokeRefreshTokens(ctx, user.ProviderUID); err != nil {
		h.logger.Warn("failed to revoke refresh tokens for %s: %v", user.ProviderUID, err)
	}
}

func orgIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
