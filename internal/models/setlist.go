package models

import "strings"

// SetlistEntry is a single track performed in a set.
type SetlistEntry struct {
	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"`
	Info   string `json:"info,omitempty"`
}

// Setlist is a recorded concert as an ordered list of non-empty sets.
type Setlist struct {
	ID        string           `json:"id"`
	Artist    string           `json:"artist"`
	Venue     string           `json:"venue,omitempty"`
	EventDate string           `json:"eventDate,omitempty"`
	URL       string           `json:"url,omitempty"`
	Sets      [][]SetlistEntry `json:"sets"`
}

// Entries flattens the sets in performance order, filling in the setlist artist where an entry has none.
func (s Setlist) Entries() []SetlistEntry {
	var out []SetlistEntry
	for _, set := range s.Sets {
		for _, e := range set {
			if e.Artist == "" {
				e.Artist = s.Artist
			}
			out = append(out, e)
		}
	}
	return out
}

// Signature is a deterministic content key: id, artist, date, then every entry as name|artist|info.
func (s Setlist) Signature() string {
	entries := s.Entries()
	tracks := make([]string, len(entries))
	for i, e := range entries {
		tracks[i] = e.Name + "|" + e.Artist + "|" + e.Info
	}
	return strings.Join([]string{s.ID, s.Artist, s.EventDate, strings.Join(tracks, "||")}, "::")
}

// PlaylistName builds the default library playlist title.
func (s Setlist) PlaylistName() string {
	parts := []string{"Setlist"}
	for _, p := range []string{s.Artist, s.EventDate} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " – ")
}
