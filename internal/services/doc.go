// Package services implements the REST side of the Genie client and the session that supplies bearer tokens.
//
// # Token Provider
//
// [TokenProvider] is the narrow view the rest of the application has of the signed-in principal:
// an opaque principal id and a bearer token obtainable on demand.
//
// [Session] implements it over an [oauth2.TokenSource], so expired tokens are refreshed transparently.
// A refresh failure invalidates the session and surfaces as [shared.ErrRefreshFailed].
//
// [OAuthProvider] wraps the identity provider's authorization code flow used by `auth login`.
// When the provider issues an id_token it is preferred as the bearer, and [PrincipalFromToken]
// reads the principal id from its user_id (or sub) claim.
//
// # REST Client
//
// [APIService] issues raw requests against the backend base URL. Every request carries the bearer token,
// an X-Request-ID header and, when configured, waits on a client-side [rate.Limiter].
// There are no automatic retries: callers decide when to re-issue a request.
//
// Non-2xx responses are converted to [*APIError], which unwraps to a shared sentinel:
//   - [shared.ErrNotAuthenticated] : 401 and 403
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 502, 503 and 504
//   - [shared.ErrAPIRequest] : everything else
//
// # Resource Services
//
// [MealPlanService] lists, fetches and creates meal plans under /meal-plans.
// [ChatService] manages "Ask Genie" threads and messages under /chats.
package services
