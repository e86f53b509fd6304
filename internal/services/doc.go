// Package services implements the Trakt remote client consumed by the export engine.
//
// # Trakt Client
//
// [TraktService] wraps an [APIClient] configured with the trakt-api-key and trakt-api-version headers. Every request
// waits on a [rate.Limiter] before it is sent.
//
// # Authorization
//
// Tokens are obtained with the OAuth2 code flow ([TraktService.AuthCodeURL], [TraktService.Exchange]) and persisted
// through a [TokenStore]. [TraktService.CheckAuthorization] loads the stored token, refreshes it when expired and
// installs it for subsequent requests. Tokens refreshed later in a run are saved again.
//
// # Error Handling
//
// Failures map onto the shared taxonomy:
//   - [shared.NetworkError] : the request never got an answer
//   - [shared.RemoteAPIError] : non-2xx status, or a body that could not be decoded (Code 0)
//   - [shared.AuthorizationError] : no stored token, failed refresh, or a 401
//
// No call is retried.
//
// # Payloads
//
// Sync endpoints take a [SyncExportRequest] of [SyncExportItem] values keyed by trakt id. Timestamps are formatted
// with [TimeFormat]. [TraktService.GetHistory] follows the X-Pagination-Page-Count header.
package services
