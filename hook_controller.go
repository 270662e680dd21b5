package auth

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// HookEventClaims is the verified payload of a blocking-hook event token.
// The identity platform signs each hook invocation as a JWT; the interesting
// bits ride alongside the registered claims.
type HookEventClaims struct {
	jwt.RegisteredClaims
	EventType  string          `json:"event_type,omitempty"`
	UserRecord HookEventRecord `json:"user_record,omitempty"`
}

// HookEventRecord mirrors the identity fields the platform sends for the
// account the event concerns.
type HookEventRecord struct {
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// HookEventVerifier validates hook event tokens against the platform JWKS.
type HookEventVerifier struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience string
}

// NewHookEventVerifier fetches and caches the platform JWKS. The returned
// verifier refreshes keys in the background until the JWKS is no longer
// needed.
func NewHookEventVerifier(jwksURL, issuer, audience string) (*HookEventVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: 5 * time.Minute,
		RefreshErrorHandler: func(err error) {
			defLogger{}.Warn("hook JWKS refresh error: %v", err)
		},
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to fetch platform JWKS")
	}

	return &HookEventVerifier{
		jwks:     jwks,
		issuer:   issuer,
		audience: audience,
	}, nil
}

// Verify parses and validates an event token, returning its claims.
func (v *HookEventVerifier) Verify(tokenString string) (*HookEventClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &HookEventClaims{}, v.jwks.Keyfunc, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*HookEventClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// EventVerifier validates a raw hook event token.
type EventVerifier interface {
	Verify(tokenString string) (*HookEventClaims, error)
}

var _ EventVerifier = (*HookEventVerifier)(nil)

// HookControllerRoutes are the paths the identity platform posts events to.
type HookControllerRoutes struct {
	BeforeCreate string
	BeforeSignIn string
	AfterCreate  string
}

// HookController is the HTTP face of the lifecycle hooks: it verifies each
// event token, dispatches to the hook handlers, and encodes the decision the
// way the platform expects (claims bag on approve, coded error on reject).
type HookController struct {
	Debug    bool
	Logger   Logger
	Hooks    LifecycleHooks
	Verifier EventVerifier
	Routes   *HookControllerRoutes
}

type HookControllerOption func(*HookController) *HookController

func NewHookController(opts ...HookControllerOption) *HookController {
	c := &HookController{
		Logger: defLogger{},
		Routes: &HookControllerRoutes{
			BeforeCreate: "/hooks/before-create",
			BeforeSignIn: "/hooks/before-sign-in",
			AfterCreate:  "/hooks/after-create",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Hooks == nil {
		panic("Missing LifecycleHooks in hook controller...")
	}

	if c.Verifier == nil {
		panic("Missing EventVerifier in hook controller...")
	}

	return c
}

func WithHookControllerHooks(hooks LifecycleHooks) HookControllerOption {
	return func(c *HookController) *HookController {
		c.Hooks = hooks
		return c
	}
}

func WithHookControllerVerifier(verifier EventVerifier) HookControllerOption {
	return func(c *HookController) *HookController {
		c.Verifier = verifier
		return c
	}
}

func WithHookControllerLogger(logger Logger) HookControllerOption {
	return func(c *HookController) *HookController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RegisterHookRoutes wires the hook endpoints into a router.
func RegisterHookRoutes[T any](app router.Router[T], opts ...HookControllerOption) {
	controller := NewHookController(opts...)

	app.Post(controller.Routes.BeforeCreate, controller.BeforeCreate).
		SetName("hooks.before-create")
	app.Post(controller.Routes.BeforeSignIn, controller.BeforeSignIn).
		SetName("hooks.before-sign-in")
	app.Post(controller.Routes.AfterCreate, controller.AfterCreate).
		SetName("hooks.after-create")
}

// hookEventPayload is the envelope the platform posts.
type hookEventPayload struct {
	Data string `json:"data" form:"data"`
}

func (a *HookController) BeforeCreate(ctx router.Context) error {
	event, err := a.decodeEvent(ctx)
	if err != nil {
		return a.rejectResponse(ctx, err)
	}

	decision, err := a.Hooks.BeforeCreate(ctx.Context(), event.UserRecord.Email)
	if err != nil {
		a.Logger.Info("sign-up blocked for %s: %v", event.UserRecord.Email, err)
		return a.rejectResponse(ctx, err)
	}

	return a.approveResponse(ctx, decision)
}

func (a *HookController) BeforeSignIn(ctx router.Context) error {
	event, err := a.decodeEvent(ctx)
	if err != nil {
		return a.rejectResponse(ctx, err)
	}

	decision, err := a.Hooks.BeforeSignIn(ctx.Context(), event.UserRecord.UID, event.UserRecord.Email)
	if err != nil {
		a.Logger.Info("sign-in blocked for %s: %v", event.UserRecord.UID, err)
		return a.rejectResponse(ctx, err)
	}

	return a.approveResponse(ctx, decision)
}

func (a *HookController) AfterCreate(ctx router.Context) error {
	event, err := a.decodeEvent(ctx)
	if err != nil {
		return a.rejectResponse(ctx, err)
	}

	identity := NewIdentity{
		UID:         event.UserRecord.UID,
		Email:       event.UserRecord.Email,
		DisplayName: event.UserRecord.DisplayName,
		PhotoURL:    event.UserRecord.PhotoURL,
	}

	if err := a.Hooks.AfterCreate(ctx.Context(), identity); err != nil {
		// surface the failure so the platform retries; the identity itself
		// already exists and is never un-created from here
		a.Logger.Error("materialization error for %s: %v", identity.UID, err)
		return ctx.JSON(router.StatusInternalServerError, map[string]any{
			"error": map[string]any{
				"code":    "materialization_failed",
				"message": "membership materialization failed",
			},
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{})
}

func (a *HookController) decodeEvent(ctx router.Context) (*HookEventClaims, error) {
	payload := new(hookEventPayload)
	if err := ctx.Bind(payload); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse hook envelope")
	}

	if payload.Data == "" {
		return nil, goerrors.New("hook envelope carries no event token", goerrors.CategoryBadInput)
	}

	event, err := a.Verifier.Verify(payload.Data)
	if err != nil {
		return nil, err
	}

	if a.Debug {
		fmt.Println("======= HOOK EVENT ======")
		fmt.Println(print.MaybePrettyJSON(event))
		fmt.Println("=========================")
	}

	return event, nil
}

func (a *HookController) approveResponse(ctx router.Context, decision HookDecision) error {
	body := map[string]any{}
	if decision.Claims != nil {
		body["user_claims"] = decision.Claims.ClaimsMap()
	}
	return ctx.JSON(router.StatusOK, body)
}

func (a *HookController) rejectResponse(ctx router.Context, err error) error {
	status := router.StatusBadRequest
	if IsAuthRejection(err) {
		status = router.StatusForbidden
	}

	code := RejectionTextCode(err)
	if code == "" {
		code = "invalid_request"
	}

	return ctx.JSON(status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
		},
	})
}
