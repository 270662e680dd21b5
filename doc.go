// Package auth provides invite-only membership management for multi-tenant
// products built on a managed identity provider. The provider owns
// credentials and account records; this package owns the decision of who may
// enter, which organization they belong to, and what role they carry.
//
// Lifecycle hooks:
//   - Hooks implements the three provider extension points. BeforeCreate
//     gates sign-up on a pending invitation, BeforeSignIn re-derives claims
//     from the membership record on every sign-in, and AfterCreate
//     materializes the membership row and consumes the invite atomically.
//     All three are safe to retry; materialization is idempotent per
//     identity.
//
// Claims:
//   - ClaimsSet is a closed union with exactly two variants: SuperAdminClaims
//     for the platform operator and MemberClaims binding a role to a single
//     organization. ParseClaimsMap is total over arbitrary claim bags and
//     distinguishes "no claims yet" from "malformed".
//
// Administration:
//   - Command handlers cover organization creation, invite issuance and
//     revocation, member role changes, and operator bootstrap. HTTP
//     controllers expose the hooks and the admin commands over JSON.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing admission,
//     rejection, and membership change events. Sinks run best-effort (errors
//     are logged) so you can forward to a database or queue without blocking
//     authentication.
package auth
