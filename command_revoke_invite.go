package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type RevokeInviteMessage struct {
	InviteID uuid.UUID `json:"invite_id" doc:"Pending invite to revoke."`
	Actor    ClaimsSet
	ActorID  uuid.UUID
}

func (p RevokeInviteMessage) Type() string { return "invite.revoke" }

// RevokeInviteHandler deletes a pending invite. Accepted invites are
// immutable history and cannot be revoked.
type RevokeInviteHandler struct {
	repo         RepositoryManager
	activitySink ActivitySink
}

func NewRevokeInviteHandler(repo RepositoryManager, sink ActivitySink) *RevokeInviteHandler {
	return &RevokeInviteHandler{
		repo:         repo,
		activitySink: normalizeActivitySink(sink),
	}
}

func (h *RevokeInviteHandler) Execute(ctx context.Context, event RevokeInviteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invite revocation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RevokeInviteHandler) execute(ctx context.Context, event RevokeInviteMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Actor == nil {
		return ErrForbidden
	}

	invite, err := h.repo.Invites().GetByID(ctx, event.InviteID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return goerrors.New("invite not found", goerrors.CategoryNotFound).
				WithMetadata(map[string]any{"invite_id": event.InviteID.String()})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load invite")
	}

	if !event.Actor.IsSuperAdmin() {
		if !event.Actor.IsAtLeast(RoleAdmin) || event.Actor.OrgID() != invite.OrgID.String() {
			return ErrForbidden
		}
	}

	if err := h.repo.Invites().DeletePending(ctx, event.InviteID); err != nil {
		if repository.IsRecordNotFound(err) {
			return goerrors.New("invite is no longer pending", goerrors.CategoryConflict).
				WithMetadata(map[string]any{"invite_id": event.InviteID.String()})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete invite")
	}

	_ = h.activitySink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventInviteRevoked,
		Actor:      ActorRef{ID: event.ActorID.String(), Type: "user"},
		Email:      invite.Email,
		OrgID:      invite.OrgID.String(),
		OccurredAt: time.Now(),
	})

	return nil
}
