package auth

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// TenantControllerRoutes are the admin surface paths.
type TenantControllerRoutes struct {
	Organizations string
	Invites       string
	Members       string
}

// TenantController exposes the tenant administration commands over JSON.
// Every route requires a validated session; authorization proper happens in
// the command handlers so the rules live in exactly one place.
type TenantController struct {
	Debug         bool
	Logger        Logger
	Repo          RepositoryManager
	Routes        *TenantControllerRoutes
	CreateOrg     *CreateOrganizationHandler
	CreateInvite  *CreateInviteHandler
	RevokeInvite  *RevokeInviteHandler
	UpdateMember  *UpdateMemberHandler
	SessionGetter func(router.Context) (*SessionClaims, error)
}

type TenantControllerOption func(*TenantController) *TenantController

func NewTenantController(opts ...TenantControllerOption) *TenantController {
	c := &TenantController{
		Logger: defLogger{},
		Routes: &TenantControllerRoutes{
			Organizations: "/orgs",
			Invites:       "/invites",
			Members:       "/members",
		},
		SessionGetter: sessionFromLocals,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in tenant controller...")
	}

	if c.CreateOrg == nil {
		c.CreateOrg = NewCreateOrganizationHandler(c.Repo, nil)
	}

	if c.CreateInvite == nil {
		c.CreateInvite = NewCreateInviteHandler(c.Repo, nil)
	}

	if c.RevokeInvite == nil {
		c.RevokeInvite = NewRevokeInviteHandler(c.Repo, nil)
	}

	if c.UpdateMember == nil {
		c.UpdateMember = NewUpdateMemberHandler(c.Repo, nil, nil)
	}

	return c
}

func WithTenantControllerRepo(repo RepositoryManager) TenantControllerOption {
	return func(c *TenantController) *TenantController {
		c.Repo = repo
		return c
	}
}

func WithTenantControllerLogger(logger Logger) TenantControllerOption {
	return func(c *TenantController) *TenantController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithTenantControllerUpdateMember(handler *UpdateMemberHandler) TenantControllerOption {
	return func(c *TenantController) *TenantController {
		c.UpdateMember = handler
		return c
	}
}

func WithTenantControllerSessionGetter(getter func(router.Context) (*SessionClaims, error)) TenantControllerOption {
	return func(c *TenantController) *TenantController {
		if getter != nil {
			c.SessionGetter = getter
		}
		return c
	}
}

// RegisterTenantRoutes wires the admin endpoints into a router. Mount behind
// the Protected middleware so sessions are already validated.
func RegisterTenantRoutes[T any](app router.Router[T], opts ...TenantControllerOption) {
	controller := NewTenantController(opts...)

	app.Post(controller.Routes.Organizations, controller.OrganizationCreate).
		SetName("orgs.create")

	app.Post(controller.Routes.Invites, controller.InviteCreate).
		SetName("invites.create")
	app.Get(fmt.Sprintf("%s/org/:org_id", controller.Routes.Invites), controller.InviteList).
		SetName("invites.list")
	app.Delete(fmt.Sprintf("%s/:id", controller.Routes.Invites), controller.InviteRevoke).
		SetName("invites.revoke")

	app.Post(fmt.Sprintf("%s/:id", controller.Routes.Members), controller.MemberUpdate).
		SetName("members.update")
}

func sessionFromLocals(ctx router.Context) (*SessionClaims, error) {
	raw := ctx.Locals(SessionContextKey)
	if raw == nil {
		return nil, ErrTokenMalformed
	}
	claims, ok := raw.(*SessionClaims)
	if claims == nil || !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// actor resolves the caller's authority and record id from the session.
func (a *TenantController) actor(ctx router.Context) (ClaimsSet, uuid.UUID, error) {
	session, err := a.SessionGetter(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}

	claims, err := session.Authority()
	if err != nil {
		return nil, uuid.Nil, err
	}

	actorID, err := uuid.Parse(session.UserID())
	if err != nil {
		return nil, uuid.Nil, goerrors.Wrap(err, goerrors.CategoryAuth, "session subject is not a record id")
	}

	return claims, actorID, nil
}

func (a *TenantController) OrganizationCreate(ctx router.Context) error {
	actor, actorID, err := a.actor(ctx)
	if err != nil {
		return a.errorResponse(ctx, err)
	}

	payload := new(CreateOrganizationMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.errorResponse(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse payload"))
	}

	payload.Actor = actor
	payload.ActorID = actorID

	var created *Organization
	payload.OnResponse = func(org *Organization) {
		created = org
	}

	if err := a.CreateOrg.Execute(ctx.Context(), *payload); err != nil {
		return a.errorResponse(ctx, err)
	}

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(created))
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"organization": created,
	})
}

func (a *TenantController) InviteCreate(ctx router.Context) error {
	actor, actorID, err := a.actor(ctx)
	if err != nil {
		return a.errorResponse(ctx, err)
	}

	payload := new(CreateInviteMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.errorResponse(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse payload"))
	}

	payload.Actor = actor
	payload.ActorID = actorID

	var created *CreateInviteResponse
	payload.OnResponse = func(resp *CreateInviteResponse) {
		created = resp
	}

	if err := a.CreateInvite.Execute(ctx.Context(), *payload); err != nil {
		return a.errorResponse(ctx, err)
	}

	// the raw token appears only here; the store keeps a hash
	return ctx.JSON(router.StatusCreated, map[string]any{
		"invite": created.Invite,
		"token":  created.Token,
	})
}

func (a *TenantController) InviteList(ctx router.Context) error {
	actor, _, err := a.actor(ctx)
	if err != nil {
		return a.errorResponse(ctx, err)
	}

	orgID, err := uuid.Parse(ctx.Param("org_id", ""))
	if err != nil {
		return a.errorResponse(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid org id"))
	}

	if !actor.IsSuperAdmin() {
		if !actor.IsAtLeast(RoleAdmin) || actor.OrgID() != orgID.String() {
			return a.errorResponse(ctx, ErrForbidden)
		}
	}

	invites, err := a.Repo.Invites().ListByOrg(ctx.Context(), orgID)
	if err != nil {
		return a.errorResponse(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list invites"))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"invites": invites,
	})
}

func (a *TenantController) InviteRevoke(ctx router.Context) error {
	actor, actorID, err := a.actor(ctx)
	if err != nil {
		return a.errorResponse(ctx, err)
	}

	inviteID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.errorResponse(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid invite id"))
	}

	msg := RevokeInviteMessage{
		InviteID: inviteID,
		Actor:    actor,
		ActorID:  actorID,
	}

	if err := a.RevokeInvite.Execute(ctx.Context(), msg); err != nil {
		return a.errorResponse(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"revoked": inviteID,
	})
}

func (a *TenantController) MemberUpdate(ctx router.Context) error {
	actor, actorID, err := a.actor(ctx)
	if err != nil {
		return a.errorResponse(ctx, err)
	}

	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.errorResponse(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid member id"))
	}

	payload := new(UpdateMemberMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.errorResponse(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse payload"))
	}

	payload.UserID = userID
	payload.Actor = actor
	payload.ActorID = actorID

	var updated *User
	payload.OnResponse = func(user *User) {
		updated = user
	}

	if err := a.UpdateMember.Execute(ctx.Context(), *payload); err != nil {
		return a.errorResponse(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"member": updated,
	})
}

func (a *TenantController) errorResponse(ctx router.Context, err error) error {
	var rich *goerrors.Error
	status := router.StatusInternalServerError

	if goerrors.As(err, &rich) {
		switch rich.Category {
		case goerrors.CategoryAuth:
			status = router.StatusForbidden
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			status = router.StatusBadRequest
		case goerrors.CategoryConflict:
			status = router.StatusConflict
		case goerrors.CategoryNotFound:
			status = router.StatusNotFound
		}
	}

	if status == router.StatusInternalServerError {
		a.Logger.Error("tenant admin error: %v", err)
	}

	if a.Debug && rich != nil {
		fmt.Println(print.MaybePrettyJSON(rich.Metadata))
	}

	return ctx.JSON(status, map[string]any{
		"error": map[string]any{
			"code":    RejectionTextCode(err),
			"message": err.Error(),
		},
	})
}
