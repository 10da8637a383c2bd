// Package tenantauth implements the authentication core of a multi-tenant
// platform: token issuance and validation, session revocation, and audited
// impersonation.
//
// Validation pipeline:
//   - TokenCodec decodes and verifies the HMAC signature of a presented
//     token. No claim is trusted, and no store is queried, until the
//     signature check has passed.
//   - RevocationGuard consults a TTL-capable side store for per-token and
//     per-user revocation markers. The side store is a second line of
//     defense: if it is unreachable the guard fails open and validity
//     rests on the signature and expiry alone.
//   - PrincipalResolver loads the user and tenant behind a validated token
//     from the system of record and assembles the request-scoped
//     AuthContext handed to callers. The tenant on the current user record
//     is authoritative, not the tenant embedded in the token.
//
// Impersonation:
//   - ImpersonationManager issues short-lived ghost tokens that let a
//     platform operator act as another user. The ghost token carries the
//     target's identity as subject and an embedded claim describing the
//     real actor, which is re-validated on every resolution. Start and
//     Stop both emit audit records through the configured AuditSink.
//
// Audit sinks run best-effort: a sink failure is logged, never allowed to
// block authentication.
package tenantauth
