package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/setlistx/internal/models"
	"github.com/desertthunder/setlistx/internal/shared"
	"github.com/goccy/go-json"
)

// MaxInputLength bounds user-supplied ids and URLs before parsing.
const MaxInputLength = 2000

var (
	rawIDPattern   = regexp.MustCompile(`(?i)^[a-f0-9-]{4,64}$`)
	htmlIDPattern  = regexp.MustCompile(`(?i)-([a-f0-9]{4,12})\.html$`)
	hexIDPattern   = regexp.MustCompile(`(?i)^[a-f0-9]{4,12}$`)
	hexSegPattern  = regexp.MustCompile(`(?i)^[a-f0-9-]+$`)
	htmlSuffix     = regexp.MustCompile(`(?i)\.html$`)
	trustedDomains = map[string]bool{"setlist.fm": true, "www.setlist.fm": true}
)

// ParseSetlistID extracts a setlist id from a bare id or a setlist.fm URL.
//
// URL hosts must be setlist.fm or www.setlist.fm exactly. It never panics and reports false on any failure.
func ParseSetlistID(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.Contains(s, "setlist.fm") {
		return idFromURL(s)
	}

	if rawIDPattern.MatchString(s) {
		return s, true
	}
	return "", false
}

func idFromURL(s string) (string, bool) {
	if !strings.HasPrefix(s, "http") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if !trustedDomains[strings.ToLower(u.Hostname())] {
		return "", false
	}

	path := u.EscapedPath()
	if m := htmlIDPattern.FindStringSubmatch(path); m != nil {
		return m[1], true
	}

	var segment string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			segment = part
		}
	}
	segment = htmlSuffix.ReplaceAllString(segment, "")

	parts := strings.Split(segment, "-")
	if last := parts[len(parts)-1]; hexIDPattern.MatchString(last) {
		return last, true
	}
	if segment != "" && hexSegPattern.MatchString(segment) {
		return segment, true
	}
	return "", false
}

// ValidateInput applies the length limit and id parsing used at every entry point.
func ValidateInput(input string) (string, error) {
	if len([]rune(input)) > MaxInputLength {
		return "", fmt.Errorf("%w: max %d characters", shared.ErrInputTooLong, MaxInputLength)
	}
	id, ok := ParseSetlistID(input)
	if !ok {
		return "", fmt.Errorf("%w: not a setlist id or setlist.fm URL", shared.ErrInvalidInput)
	}
	return id, nil
}

type setlistFMSong struct {
	Name *string `json:"name"`
	Info string  `json:"info"`
}

type setlistFMSet struct {
	Name   string           `json:"name"`
	Encore int              `json:"encore"`
	Song   []*setlistFMSong `json:"song"`
}

type setlistFMPayload struct {
	ID        string `json:"id"`
	EventDate string `json:"eventDate"`
	URL       string `json:"url"`
	Artist    *struct {
		Name string `json:"name"`
	} `json:"artist"`
	Venue *struct {
		Name string `json:"name"`
	} `json:"venue"`
	Set  []*setlistFMSet `json:"set"`
	Sets *struct {
		Set []*setlistFMSet `json:"set"`
	} `json:"sets"`
}

// MapSetlist converts a setlist.fm payload into a [models.Setlist].
//
// Both the flat "set" array and the API's nested "sets.set" shape are accepted. Songs without a name and
// sets left empty are dropped.
func MapSetlist(raw []byte) (*models.Setlist, error) {
	if !isJSONObject(raw) {
		return nil, shared.ErrInvalidSetlist
	}

	var p setlistFMPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidSetlist, err)
	}
	if p.Artist == nil {
		return nil, fmt.Errorf("%w: missing artist", shared.ErrInvalidSetlist)
	}

	setlist := &models.Setlist{
		ID:        p.ID,
		Artist:    p.Artist.Name,
		EventDate: p.EventDate,
		URL:       p.URL,
		Sets:      [][]models.SetlistEntry{},
	}
	if p.Venue != nil {
		setlist.Venue = p.Venue.Name
	}

	sets := p.Set
	if len(sets) == 0 && p.Sets != nil {
		sets = p.Sets.Set
	}

	for _, set := range sets {
		if set == nil {
			continue
		}
		entries := make([]models.SetlistEntry, 0, len(set.Song))
		for _, song := range set.Song {
			if song == nil || song.Name == nil {
				continue
			}
			entries = append(entries, models.SetlistEntry{
				Name:   *song.Name,
				Artist: setlist.Artist,
				Info:   song.Info,
			})
		}
		if len(entries) > 0 {
			setlist.Sets = append(setlist.Sets, entries)
		}
	}

	return setlist, nil
}
