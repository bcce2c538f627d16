// Package catalog serves the read-only movie and theatre listings.
package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
	"github.com/iliyamo/cinema-ticket-checkout/internal/seatmap"
)

//go:embed data/movies.json data/theatres.json
var bundled embed.FS

var (
	// ErrMovieNotFound is returned for an unknown movie id.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrScreenNotFound is returned for an unknown screen id, or a screen
	// that does not show the requested movie.
	ErrScreenNotFound = errors.New("screen not found")
	// ErrShowtimeNotFound is returned when the screen has no such showtime.
	ErrShowtimeNotFound = errors.New("showtime not found")
)

// Catalog is an immutable index over movies and theatres.
type Catalog struct {
	movies   []model.Movie
	theatres []model.Theatre
	byMovie  map[string]int
	byScreen map[string]screenRef
}

type screenRef struct {
	theatre int
	screen  int
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	m, err := bundled.ReadFile("data/movies.json")
	if err != nil {
		return nil, err
	}
	t, err := bundled.ReadFile("data/theatres.json")
	if err != nil {
		return nil, err
	}
	return Parse(m, t)
}

// FromDir reads movies.json and theatres.json from dir.
func FromDir(dir string) (*Catalog, error) {
	m, err := os.ReadFile(filepath.Join(dir, "movies.json"))
	if err != nil {
		return nil, err
	}
	t, err := os.ReadFile(filepath.Join(dir, "theatres.json"))
	if err != nil {
		return nil, err
	}
	return Parse(m, t)
}

// Parse builds a catalog from JSON documents and checks referential
// integrity: ids are unique, every screen shows a known movie and
// every layout is a non-empty grid whose booked seats lie inside it.
func Parse(moviesJSON, theatresJSON []byte) (*Catalog, error) {
	c := &Catalog{byMovie: map[string]int{}, byScreen: map[string]screenRef{}}
	if err := json.Unmarshal(moviesJSON, &c.movies); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}
	if err := json.Unmarshal(theatresJSON, &c.theatres); err != nil {
		return nil, fmt.Errorf("decode theatres: %w", err)
	}
	for i, m := range c.movies {
		if m.ID == "" {
			return nil, fmt.Errorf("movie #%d has no id", i)
		}
		if _, dup := c.byMovie[m.ID]; dup {
			return nil, fmt.Errorf("duplicate movie id %q", m.ID)
		}
		c.byMovie[m.ID] = i
	}
	for ti, t := range c.theatres {
		for si, s := range t.Screens {
			if _, dup := c.byScreen[s.ScreenID]; dup {
				return nil, fmt.Errorf("duplicate screen id %q", s.ScreenID)
			}
			if _, ok := c.byMovie[s.MovieID]; !ok {
				return nil, fmt.Errorf("screen %q shows unknown movie %q", s.ScreenID, s.MovieID)
			}
			if err := checkLayout(s.SeatLayout); err != nil {
				return nil, fmt.Errorf("screen %q: %w", s.ScreenID, err)
			}
			if s.Price.IsNegative() {
				return nil, fmt.Errorf("screen %q: negative price", s.ScreenID)
			}
			c.byScreen[s.ScreenID] = screenRef{theatre: ti, screen: si}
		}
	}
	return c, nil
}

func checkLayout(l model.SeatLayout) error {
	if l.Rows <= 0 || l.SeatsPerRow <= 0 {
		return fmt.Errorf("empty seat layout %dx%d", l.Rows, l.SeatsPerRow)
	}
	inv := seatmap.NewInventory(l)
	for _, id := range l.BookedSeats {
		if !inv.Contains(id) {
			return fmt.Errorf("booked seat %q outside %dx%d grid", id, l.Rows, l.SeatsPerRow)
		}
	}
	return nil
}

// Movies lists every movie in catalog order.
func (c *Catalog) Movies() []model.Movie {
	out := make([]model.Movie, len(c.movies))
	copy(out, c.movies)
	return out
}

// Movie looks a movie up by id.
func (c *Catalog) Movie(id string) (model.Movie, error) {
	i, ok := c.byMovie[id]
	if !ok {
		return model.Movie{}, ErrMovieNotFound
	}
	return c.movies[i], nil
}

// Screen looks a screen up by id and returns it with its theatre.
func (c *Catalog) Screen(screenID string) (model.Theatre, model.Screen, error) {
	ref, ok := c.byScreen[screenID]
	if !ok {
		return model.Theatre{}, model.Screen{}, ErrScreenNotFound
	}
	t := c.theatres[ref.theatre]
	return t, t.Screens[ref.screen], nil
}

// TheatresShowing returns the theatres that run movieID, each with only
// the screens showing it.
func (c *Catalog) TheatresShowing(movieID string) []model.Theatre {
	var out []model.Theatre
	for _, t := range c.theatres {
		var screens []model.Screen
		for _, s := range t.Screens {
			if s.MovieID == movieID {
				screens = append(screens, s)
			}
		}
		if len(screens) > 0 {
			t.Screens = screens
			out = append(out, t)
		}
	}
	return out
}

// Showing is a resolved (movie, theatre, screen, showtime) tuple.
type Showing struct {
	Movie    model.Movie
	Theatre  model.Theatre
	Screen   model.Screen
	ShowTime string
}

// Key returns the ShowKey of the showing.
func (s Showing) Key() model.ShowKey {
	return model.ShowKey{ScreenID: s.Screen.ScreenID, ShowTime: s.ShowTime}
}

// Resolve validates a booking-view address.  The screen must show the
// movie and list the showtime.
func (c *Catalog) Resolve(movieID, screenID, showTime string) (Showing, error) {
	m, err := c.Movie(movieID)
	if err != nil {
		return Showing{}, err
	}
	t, s, err := c.Screen(screenID)
	if err != nil {
		return Showing{}, err
	}
	if s.MovieID != movieID {
		return Showing{}, ErrScreenNotFound
	}
	if !s.HasShowtime(showTime) {
		return Showing{}, ErrShowtimeNotFound
	}
	return Showing{Movie: m, Theatre: t, Screen: s, ShowTime: showTime}, nil
}
