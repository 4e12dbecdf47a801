// Package server provides HTTP routing, middleware, and the handlers that
// expose the sync engine and OAuth callback flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. [RequestLogger] and [Recoverer] are the
// two middlewares the service installs by default.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with
// method-prefixed patterns.
//
// # Sync API
//
// [SyncHandler] exposes the background sync engine:
//
//   - POST /api/sync           start a sync, returns the pending task (202)
//   - POST /api/sync/cancel    cancel a running task by task_id
//   - GET  /api/sync/status    snapshot of one task by task_id
//   - GET  /api/sync/history   a user's past tasks, newest first
//
// Bodies mirror the models package with snake_case JSON tags. Engine errors
// are mapped onto HTTP statuses: unknown task 404, invalid input 400,
// invalid state transitions 409.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback. The
// handler validates the state parameter (CSRF protection), exchanges the
// authorization code for tokens, and sends the result through a channel.
// It only processes one callback to prevent replay attacks.
//
// During CLI authentication a temporary server starts on the configured
// redirect address, handles the single callback, and shuts down once the
// token arrives.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which extends the
// stdlib handler with route patterns so each handler encapsulates its own
// route definitions.
package server
