package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// DefaultInviteTTL is how long an invite stays consumable unless the
// message overrides it.
var DefaultInviteTTL = 7 * 24 * time.Hour

type CreateInviteMessage struct {
	Email      string     `json:"email" example:"pepe.rone@example.com" doc:"Invitee email."`
	OrgID      uuid.UUID  `json:"org_id" doc:"Target organization."`
	Role       MemberRole `json:"member_role" example:"user" doc:"Role granted on acceptance."`
	Phone      string     `json:"phone_number,omitempty" doc:"Optional contact number, E.164 or national format."`
	TTL        time.Duration
	Actor      ClaimsSet
	ActorID    uuid.UUID
	OnResponse func(resp *CreateInviteResponse)
}

func (p CreateInviteMessage) Type() string { return "invite.create" }

// Validate will run validation rules
func (p CreateInviteMessage) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&p.Role, validation.Required, validation.In(RoleViewer, RoleUser, RoleAdmin)),
		validation.Field(&p.Phone, validation.By(validateOptionalPhone)),
	)
}

func validateOptionalPhone(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	parsed, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return err
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return goerrors.New("invalid phone number", goerrors.CategoryValidation)
	}
	return nil
}

// CreateInviteResponse carries the stored invite and the raw delivery token.
// The raw token exists only in this response; the record keeps a hash.
// Delivering it (email or otherwise) is the caller's concern.
type CreateInviteResponse struct {
	Invite *Invite
	Token  string
}

// CreateInviteHandler issues admission tickets. Admins may invite into their
// own organization; the operator may invite into any. At most one pending,
// unexpired invite may exist per email, which is the precondition the
// lifecycle hooks consume.
type CreateInviteHandler struct {
	repo         RepositoryManager
	now          Clock
	activitySink ActivitySink
}

func NewCreateInviteHandler(repo RepositoryManager, sink ActivitySink) *CreateInviteHandler {
	return &CreateInviteHandler{
		repo:         repo,
		now:          time.Now,
		activitySink: normalizeActivitySink(sink),
	}
}

// WithClock injects a custom clock (useful for tests).
func (h *CreateInviteHandler) WithClock(clock Clock) *CreateInviteHandler {
	h.now = normalizeClock(clock)
	return h
}

func (h *CreateInviteHandler) Execute(ctx context.Context, event CreateInviteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invite creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateInviteHandler) execute(ctx context.Context, event CreateInviteMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.authorize(event); err != nil {
		return err
	}

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid invite payload")
	}

	now := h.now()

	if exists, err := h.repo.Invites().HasConsumable(ctx, event.Email, now); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check pending invitations")
	} else if exists {
		return ErrInviteConflict
	}

	token := NewInviteToken()
	hash, err := HashInviteToken(token)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash invite token")
	}

	ttl := event.TTL
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}

	invite := &Invite{
		ID:        uuid.New(),
		Email:     event.Email,
		OrgID:     event.OrgID,
		Role:      event.Role,
		Phone:     event.Phone,
		InvitedBy: event.ActorID,
		Status:    InviteStatusPending,
		TokenHash: hash,
		CreatedAt: &now,
		ExpiresAt: now.Add(ttl),
	}

	if invite, err = h.repo.Invites().Create(ctx, invite); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create invite")
	}

	_ = h.activitySink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventInviteCreated,
		Actor:      ActorRef{ID: event.ActorID.String(), Type: "user"},
		Email:      event.Email,
		OrgID:      event.OrgID.String(),
		Metadata:   map[string]any{"role": string(event.Role)},
		OccurredAt: now,
	})

	if event.OnResponse != nil {
		event.OnResponse(&CreateInviteResponse{
			Invite: invite,
			Token:  token,
		})
	}

	return nil
}

func (h *CreateInviteHandler) authorize(event CreateInviteMessage) error {
	if event.Actor == nil {
		return ErrForbidden
	}
	if event.Actor.IsSuperAdmin() {
		return nil
	}
	if !event.Actor.IsAtLeast(RoleAdmin) {
		return ErrForbidden
	}
	// admins can only grow their own organization
	if event.Actor.OrgID() != event.OrgID.String() {
		return ErrForbidden
	}
	return nil
}
