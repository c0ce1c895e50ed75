// Package tasks orchestrates the setlist pipeline: import, catalog matching, and playlist export.
//
// # Operations
//
//  1. [Importer.Import] : setlist.fm id or URL → [models.Setlist]
//     - Rejects over-long or unparseable input before any network call
//     - A newer import cancels the previous one; its late result is discarded
//
//  2. [Matcher.Run] : [models.Setlist] → ordered [models.MatchRow] list
//     - One catalog search per entry, sequentially, in setlist order
//     - Each run owns a generation; results are applied only while that generation is current
//     - A failed search leaves its row Unmatched and flags a partial failure
//     - [Matcher.SetMatch], [Matcher.SkipUnmatched] and [Matcher.Reset] are user actions and win over
//     suggestions still in flight
//
//  3. [Exporter.Export] : match rows → library playlist
//     - Creates the playlist named by [models.Setlist.PlaylistName]
//     - Adds matched track ids in row order, de-duplicated
//
// # Progress Reporting
//
// All operations accept an optional progress channel. Sends use select with default so a slow or absent
// reader never blocks the pipeline.
package tasks
