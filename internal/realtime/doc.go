// Package realtime maintains the push channel that delivers meal plan job notifications.
//
// # Manager
//
// [Manager] owns at most one live transport per session and reflects its lifecycle as a [State]:
//
//	disconnected → connecting → connected
//	      ↑            │            │
//	      └────────────┴────────────┘  handshake failure, timeout, transport close
//
// All state lives on a single event-loop goroutine started by [Manager.Run]. Public methods post
// commands to that loop; dials and reads happen on helper goroutines that report back to it, so
// the loop never blocks on the network. Each handshake is bounded by a timer the loop owns, so a
// token refresh or dial that ignores its context is abandoned after the handshake timeout and its
// late result closed on arrival.
//
// Whether the channel should be open is decided by one function, [DesiredState], over the current
// [Inputs] (signed in, Meal Plans view active, network online). The manager diffs the desired and
// actual state whenever an input changes and acts once.
//
// # Reconnection
//
// A failed handshake or dropped transport schedules a retry using [BackoffPolicy] while the terminal
// is focused and the retry budget remains. The budget is reset by a successful connection and by
// the re-arm triggers: network coming back online, returning to the Meal Plans view, and signing in.
// [WatchNetwork] feeds the online input from periodic [TCPProbe] checks of the backend.
//
// A handshake rejected with 401/403, a transport closed with policy violation (1008), or a session
// that can no longer refresh its token is an auth rejection: the manager stays disconnected until
// the next sign-in.
//
// # Events
//
// Inbound messages are decoded as [Event]. Malformed messages are logged and dropped. Every decoded
// event becomes the last event and is fanned out to subscribers; meal plan completion and error
// events are also forwarded to the configured [EventHandler].
package realtime
