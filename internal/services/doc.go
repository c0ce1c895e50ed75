// Package services holds the outbound HTTP clients.
//
// # setlist.fm
//
// [SetlistFMService.FetchByID] reads through a TTL cache, retries 429 responses a bounded number of times
// with a linearly growing backoff, and reports every failure as a [*FetchError]. Successful bodies must be
// JSON objects; anything else is a 502 and is never cached. [MapSetlist] turns the cached payload into a
// [models.Setlist] and [ParseSetlistID] validates user input before any request is made.
//
// # Apple Music
//
// [AppleMusicService] searches the catalog and writes library playlists. The developer token is attached by
// an [oauth2.Transport] whose source is the process token cache, so a stale token is re-minted before the
// request leaves. Library calls also send the Music-User-Token header.
//
// # Developer tokens
//
// [DevTokenService] fetches a signed developer token from a token endpoint that answers {token} or {error}.
//
// # Error Handling
//
// Failures wrap sentinels from the shared package:
//   - [shared.ErrUpstreamRateLimited] : retries exhausted on 429
//   - [shared.ErrUpstreamUnavailable] : 5xx or transport failure
//   - [shared.ErrUpstreamNotFound] : 404
//   - [shared.ErrInvalidUpstreamBody] : 2xx body that is not a JSON object
//   - [shared.ErrCatalogSearch] : catalog errors array was non-empty
package services
