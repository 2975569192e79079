// Package server provides the loopback HTTP server used by `auth login`.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [BasicRouter] registers "METHOD path" patterns on an [http.ServeMux]; the first [Middleware] added
// runs outermost.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback: it validates the state parameter,
// exchanges the code for tokens and delivers exactly one [OAuthResult].
//
// [AwaitCallback] runs a temporary server on the configured address until the callback arrives
// or the context ends, then shuts it down.
package server
