package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignupApproved      ActivityEventType = "auth.signup.approved"
	ActivityEventSignupRejected      ActivityEventType = "auth.signup.rejected"
	ActivityEventSignInApproved      ActivityEventType = "auth.signin.approved"
	ActivityEventSignInRejected      ActivityEventType = "auth.signin.rejected"
	ActivityEventMemberMaterialized  ActivityEventType = "auth.member.materialized"
	ActivityEventMemberUpdated       ActivityEventType = "auth.member.updated"
	ActivityEventMemberDeactivated   ActivityEventType = "auth.member.deactivated"
	ActivityEventInviteCreated       ActivityEventType = "auth.invite.created"
	ActivityEventInviteRevoked       ActivityEventType = "auth.invite.revoked"
	ActivityEventOrganizationCreated ActivityEventType = "auth.org.created"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Email      string
	OrgID      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged, never propagated into the hook
// decision.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
