package agency

import (
	"encoding/json"
	"errors"
	"time"
)

// Actor is a performer on the agency roster.
type Actor struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Age    int        `json:"age"`
	Gender string     `json:"gender"`
	Movies []MovieRef `json:"movies"`
}

// Movie is a production the agency casts for.
type Movie struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	ReleaseDate Date       `json:"release_date"`
	Actors      []ActorRef `json:"actors"`
}

// MovieRef is the short form used when embedding movies in an actor.
type MovieRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ActorRef is the short form used when embedding actors in a movie.
type ActorRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ActorInput carries the required fields for creating an actor.
type ActorInput struct {
	Name   string
	Age    int
	Gender string
}

// ActorPatch carries optional fields for a partial update; nil means keep.
type ActorPatch struct {
	Name   *string
	Age    *int
	Gender *string
}

// MovieInput carries the required fields for creating a movie.
type MovieInput struct {
	Title       string
	ReleaseDate Date
}

// MoviePatch carries optional fields for a partial update; nil means keep.
type MoviePatch struct {
	Title       *string
	ReleaseDate *Date
}

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

const dateLayout = "2006-01-02"

// Date is a calendar date serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
