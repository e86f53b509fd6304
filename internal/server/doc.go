// Package server provides HTTP routing, middleware, and the OAuth callback listener for the auth commands.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the Trakt authorization code callback. It validates the state parameter, exchanges the
// code through an [Exchanger], and sends the result through a channel. Only the first callback is processed.
//
// # Usage
//
// `showsync auth login` binds a [Server] on the configured host and port, opens the Trakt authorize page, waits for
// the callback, and shuts the server down after receiving the token.
package server
