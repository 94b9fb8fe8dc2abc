package course

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrVideoNotFound = errors.New("video not found")

// ID is a string-normalized identifier.
// The remote API sends ids either as JSON numbers or strings; both decode to the same ID.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = NormalizeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrapf(err, "decoding id %s", b)
	}
	// numbers written with a fraction or exponent ("1.0", "1e0") are reduced to their integer form
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			s = strconv.FormatInt(int64(f), 10)
		}
	}
	*id = NormalizeID(s)
	return nil
}

func NormalizeID(s string) ID {
	return ID(strings.TrimSpace(s))
}

// Flag is a boolean the remote API sends as 0/1 (or true/false, "0"/"1").
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	switch s := strings.Trim(string(bytes.TrimSpace(b)), `"`); s {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		return errors.Errorf("invalid flag %s", b)
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// Price accepts a JSON number or a numeric string. 0 means free.
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "decoding price %s", b)
	}
	*p = Price(f)
	return nil
}

type Video struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Duration    int    `json:"duration"` // seconds
}

// TitleOr returns the title, or fallback when the title is missing.
func (v Video) TitleOr(fallback string) string {
	if t := strings.TrimSpace(v.Title); t != "" {
		return t
	}
	return fallback
}

type Section struct {
	ID     ID      `json:"id"`
	Title  string  `json:"title"`
	Videos []Video `json:"videos"`
}

type Course struct {
	ID           ID        `json:"id"`
	Title        string    `json:"title"`
	IsSequential Flag      `json:"is_sequential"`
	Price        Price     `json:"price"`
	Sections     []Section `json:"sections"`
}

func (c Course) IsFree() bool { return c.Price <= 0 }

// TitleOr returns the title, or fallback when the title is missing.
func (c Course) TitleOr(fallback string) string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	return fallback
}

// OrderedVideos flattens the course: sections in order, then videos in order.
// Videos without an id are skipped.
func (c Course) OrderedVideos() []Video {
	var videos []Video
	for _, sec := range c.Sections {
		for _, v := range sec.Videos {
			if v.ID == "" {
				continue
			}
			videos = append(videos, v)
		}
	}
	return videos
}

// VideoIDs returns the ids of OrderedVideos.
func (c Course) VideoIDs() []ID {
	videos := c.OrderedVideos()
	ids := make([]ID, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids
}

// FindVideo returns the video and its ordinal position in OrderedVideos.
func (c Course) FindVideo(id ID) (Video, int, error) {
	id = NormalizeID(string(id))
	for i, v := range c.OrderedVideos() {
		if v.ID == id {
			return v, i, nil
		}
	}
	return Video{}, -1, ErrVideoNotFound
}

type Question struct {
	ID      ID       `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

type Quiz struct {
	ID        ID         `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

func (q *Quiz) HasContent() bool {
	return q != nil && len(q.Questions) > 0
}

// IDSet is a set of video ids, eg. the videos a user has watched.
type IDSet map[ID]struct{}

func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id ID) {
	if id = NormalizeID(string(id)); id != "" {
		s[id] = struct{}{}
	}
}

func (s IDSet) Remove(id ID) {
	delete(s, NormalizeID(string(id)))
}

func (s IDSet) Has(id ID) bool {
	_, ok := s[NormalizeID(string(id))]
	return ok
}

func (s IDSet) Len() int { return len(s) }

func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Slice returns the ids sorted, numerically when both ids are numbers.
func (s IDSet) Slice() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	return ids
}

func lessID(a, b ID) bool {
	na, errA := strconv.ParseInt(string(a), 10, 64)
	nb, errB := strconv.ParseInt(string(b), 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
