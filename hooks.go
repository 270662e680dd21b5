package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Hooks implements the three identity lifecycle handlers. Each invocation is
// an independent, short-lived request-response unit; the only state shared
// between invocations is the injected repository manager, so any number of
// hook invocations may run concurrently.
type Hooks struct {
	repo         RepositoryManager
	logger       Logger
	now          Clock
	activitySink ActivitySink
}

var _ LifecycleHooks = (*Hooks)(nil)

// HooksOption customizes hook construction.
type HooksOption func(*Hooks)

// WithHooksLogger overrides the default logger.
func WithHooksLogger(logger Logger) HooksOption {
	return func(h *Hooks) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHooksClock injects a custom clock (useful for tests).
func WithHooksClock(clock Clock) HooksOption {
	return func(h *Hooks) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithHooksActivitySink sets the ActivitySink used to publish hook outcomes.
func WithHooksActivitySink(sink ActivitySink) HooksOption {
	return func(h *Hooks) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

// NewHooks returns the lifecycle hook handlers bound to a repository manager.
func NewHooks(repo RepositoryManager, opts ...HooksOption) *Hooks {
	h := &Hooks{
		repo:         repo,
		logger:       defLogger{},
		now:          time.Now,
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// BeforeCreate gates account creation. Given a candidate email it decides
// whether an identity may exist at all and what authority it will carry:
//
//  1. An existing record with the super admin sentinel approves with
//     SuperAdminClaims. This lets an operator recreate the operator identity
//     without a fresh invite.
//  2. A pending, unexpired invite approves with MemberClaims built from the
//     invite. The invite is NOT consumed here: the decision path has no side
//     effects, so the platform may retry it freely; consumption happens in
//     AfterCreate.
//  3. Otherwise the sign-up is rejected.
//
// When multiple pending invites exist for the email (the creation invariant
// should prevent it, but it is tolerated) the earliest created one wins.
func (h *Hooks) BeforeCreate(ctx context.Context, email string) (HookDecision, error) {
	if email == "" {
		return HookDecision{}, ErrEmailRequired
	}

	super, err := h.repo.Users().GetSuperAdminByEmail(ctx, email)
	if err != nil && !repository.IsRecordNotFound(err) {
		return HookDecision{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query operator record")
	}
	if err == nil && super != nil {
		h.emit(ctx, ActivityEvent{
			EventType: ActivityEventSignupApproved,
			Actor:     ActorRef{Type: "platform"},
			Email:     email,
			Metadata:  map[string]any{"path": "super-admin-rebootstrap"},
		})
		return HookDecision{Claims: SuperAdminClaims{}}, nil
	}

	matches, err := h.repo.Invites().FindConsumableByEmail(ctx, email, h.now())
	if err != nil {
		return HookDecision{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query invitations")
	}

	if len(matches) == 0 {
		h.emit(ctx, ActivityEvent{
			EventType: ActivityEventSignupRejected,
			Actor:     ActorRef{Type: "platform"},
			Email:     email,
		})
		return HookDecision{}, ErrNoValidInvitation
	}

	invite := matches[0]

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventSignupApproved,
		Actor:     ActorRef{Type: "platform"},
		Email:     email,
		OrgID:     invite.OrgID.String(),
		Metadata:  map[string]any{"invite_id": invite.ID.String()},
	})

	return HookDecision{Claims: MemberClaims{
		Role: invite.Role,
		Org:  invite.OrgID.String(),
	}}, nil
}

// BeforeSignIn re-validates authority on every sign-in attempt, including
// the first. It is a pure function of current record state and never writes;
// it is the sole mechanism for revoking or downgrading authority after the
// fact. Outcomes:
//
//   - operator sentinel record: approve with SuperAdminClaims
//   - record with a usable role and org binding: approve with fresh
//     MemberClaims mirroring the record (a role change becomes authoritative
//     here on the next sign-in)
//   - record present but binding cleared: reject as deactivated
//   - no record at all: approve with empty claims. This is the first sign-in
//     of an approved identity whose materialization has not landed yet;
//     treating it as deactivated would race AfterCreate.
func (h *Hooks) BeforeSignIn(ctx context.Context, uid, email string) (HookDecision, error) {
	if uid == "" {
		return HookDecision{}, ErrIdentityRequired
	}
	if email == "" {
		return HookDecision{}, ErrEmailRequired
	}

	user, err := h.repo.Users().GetByProviderUID(ctx, uid)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// approved but not yet materialized; nothing to assert yet
			return HookDecision{}, nil
		}
		return HookDecision{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load membership record")
	}

	claims, ok := ClaimsForUser(user)
	if !ok {
		h.emit(ctx, ActivityEvent{
			EventType: ActivityEventSignInRejected,
			Actor:     ActorRef{ID: uid, Type: "user"},
			UserID:    uid,
			Email:     email,
		})
		return HookDecision{}, ErrAccountDeactivated
	}

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventSignInApproved,
		Actor:     ActorRef{ID: uid, Type: "user"},
		UserID:    uid,
		Email:     email,
		OrgID:     claims.OrgID(),
	})

	return HookDecision{Claims: claims}, nil
}

// AfterCreate runs once the identity platform has durably created the
// account. It transitions the system from "identity exists, nothing else
// does" to "full membership materialized": create the membership record,
// consume the invite, bump the organization counter, all in one transaction.
// Every early return is a deliberate no-op, never an error the platform
// would surface to the signing-in user:
//
//   - missing email: BeforeCreate requires one, so this payload is junk
//   - record already exists: materialization already happened, or the
//     operator record was bootstrapped out-of-band
//   - no pending invite: another materialization attempt won the race
//
// Invite expiry is intentionally not re-checked: the pre-creation gate
// already passed, and an approved sign-up must be allowed to land even if
// the clock ticked past expiry during the async gap.
func (h *Hooks) AfterCreate(ctx context.Context, identity NewIdentity) error {
	if identity.Email == "" {
		h.logger.Warn("materialization skipped: identity %s has no email", identity.UID)
		return nil
	}

	existing, err := h.repo.Users().GetByProviderUID(ctx, identity.UID)
	if err != nil && !repository.IsRecordNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check membership record")
	}
	if existing != nil {
		h.logger.Debug("materialization skipped: record exists for %s", identity.UID)
		return nil
	}

	now := h.now()
	var materialized *User
	var consumed *Invite

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		matches, err := h.repo.Invites().FindPendingByEmailTx(ctx, tx, identity.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query invitations")
		}
		if len(matches) == 0 {
			return nil
		}

		invite := matches[0]

		user := &User{
			ProviderUID: identity.UID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
			PhotoURL:    identity.PhotoURL,
			Phone:       invite.Phone,
			OrgID:       &invite.OrgID,
			Role:        invite.Role,
			CreatedAt:   &now,
			UpdatedAt:   &now,
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create membership record")
		}

		if err := h.repo.Invites().AcceptTx(ctx, tx, invite.ID, now); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume invitation")
		}

		if err := h.repo.Organizations().IncrementMemberCountTx(ctx, tx, invite.OrgID, 1); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to adjust member count")
		}

		materialized = user
		consumed = invite
		return nil
	})

	if err != nil {
		// the identity already exists and must not be un-created; report the
		// failure for the platform's retry and rely on the idempotency guard
		h.logger.Error("materialization failed for %s: %v", identity.UID, err)
		return err
	}

	if materialized == nil {
		h.logger.Warn("materialization skipped: no pending invite for %s", identity.Email)
		return nil
	}

	h.emit(ctx, ActivityEvent{
		EventType: ActivityEventMemberMaterialized,
		Actor:     ActorRef{ID: identity.UID, Type: "user"},
		UserID:    identity.UID,
		Email:     identity.Email,
		OrgID:     consumed.OrgID.String(),
		Metadata: map[string]any{
			"invite_id": consumed.ID.String(),
			"role":      string(consumed.Role),
		},
	})

	return nil
}

func (h *Hooks) emit(ctx context.Context, event ActivityEvent) {
	sink := normalizeActivitySink(h.activitySink)

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now()
	}

	if err := sink.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}
