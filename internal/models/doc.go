// Package models defines the domain entities shared by the setlist import, matching, and export flows.
//
//   - [Setlist] : a concert's ordered performance sets, mapped once from the setlist.fm payload and read-only afterwards
//   - [SetlistEntry] : one performed track, artist inherited from the setlist when the source omits it
//   - [CatalogTrack] : a streaming catalog song returned by search
//   - [MatchRow] : one entry paired with zero or one catalog track and a [MatchStatus]
//
// [Setlist.Signature] derives a content key so that edits to a setlist, not just a new value, restart matching.
package models
