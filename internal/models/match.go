package models

import "fmt"

// CatalogTrack is a song in the streaming catalog.
type CatalogTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`
}

// MatchStatus is the tri-state outcome for a [MatchRow].
type MatchStatus int

const (
	Unmatched MatchStatus = iota
	Matched
	Skipped
)

func (s MatchStatus) String() string {
	switch s {
	case Unmatched:
		return "unmatched"
	case Matched:
		return "matched"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("MatchStatus(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s MatchStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *MatchStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unmatched":
		*s = Unmatched
	case "matched":
		*s = Matched
	case "skipped":
		*s = Skipped
	default:
		return fmt.Errorf("unknown match status %q", string(b))
	}
	return nil
}

// MatchRow pairs one setlist entry with its chosen catalog track.
type MatchRow struct {
	Entry  SetlistEntry  `json:"entry"`
	Track  *CatalogTrack `json:"track"`
	Status MatchStatus   `json:"status"`
}

// NewMatchRows returns one Unmatched row per entry, in order.
func NewMatchRows(entries []SetlistEntry) []MatchRow {
	rows := make([]MatchRow, len(entries))
	for i, e := range entries {
		rows[i] = MatchRow{Entry: e, Status: Unmatched}
	}
	return rows
}

// MatchedTrackIDs returns the catalog ids of Matched rows in row order, without duplicates.
func MatchedTrackIDs(rows []MatchRow) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Status == Matched && r.Track != nil {
			ids = append(ids, r.Track.ID)
		}
	}
	return DedupeTrackIDs(ids)
}

// DedupeTrackIDs keeps the first occurrence of each non-empty id.
func DedupeTrackIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
