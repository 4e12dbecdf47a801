// Package services defines the [Service] interface for music streaming providers and implements it for Spotify and Apple Music.
//
// # Service Interface
//
// All music providers implement a common capability surface (catalog read,
// catalog search, catalog write), enabling the matcher and sync engine to work
// uniformly across providers.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
// The [oauth2.Config] client refreshes expired tokens using the refresh token.
//
// # Apple Music Implementation
//
// [AppleMusicService] authenticates with a developer token (an ES256-signed JWT
// built from the configured key id, team id, and private key) plus a
// Music-User-Token header for library writes. Catalog searches are scoped to
// the configured storefront.
//
// # Request Path
//
// Every outbound call runs through the shared [requester]: it acquires a slot
// from the provider's rate limiter, performs the HTTP call, and classifies
// failures into [shared.ErrorKind]. Transient failures are retried with
// bounded exponential backoff; quota rejections honor the provider's
// Retry-After (feeding the hold back into the limiter) and retry once;
// permanent and data errors surface immediately.
//
// # Batch Semantics
//
// [Service.AddTracks] reports an outcome per track id rather than failing the
// whole batch, so the sync engine can attribute failures to specific tracks.
package services
