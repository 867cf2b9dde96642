// Package auth implements the credential and session lifecycle for the
// teleclinic backend: dual-token authentication (short-lived access JWT,
// longer-lived rotating refresh JWT), server-side revocation of refresh
// credentials, and the request-boundary origin gate.
//
// Token lifecycle:
//   - TokenCodec signs and verifies both token purposes with per-purpose
//     secrets, so a refresh credential can never be replayed where an
//     access credential is expected.
//   - Every Account owns an embedded ledger of refresh-token records
//     (opaque id, issuance time, revoked flag). A refresh credential is
//     only honored while its record exists and is not revoked.
//   - SessionAuthenticator verifies the access credential first and falls
//     back to the refresh credential. The refresh path always hands back a
//     fresh access token, and rotates the refresh credential once it is
//     within RotationPolicy's threshold of expiry.
//
// Concurrency:
//   - Refresh-token mutations persist through a version-conditioned
//     Account update. Concurrent rotations of the same credential race on
//     the version column; the loser reloads and re-validates instead of
//     silently overwriting the winner's append.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing login,
//     refresh, rotation, and revocation events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue
//     without blocking authentication.
package auth
