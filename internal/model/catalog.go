package model

import "github.com/shopspring/decimal"

// Movie is a catalog entry as shown on the home and movie views.
type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Poster      string   `json:"poster,omitempty"`
	Rating      float64  `json:"rating"`
	Genre       []string `json:"genre"`
	Language    string   `json:"language"`
	Duration    string   `json:"duration"`
	ReleaseDate string   `json:"releaseDate"`
	Description string   `json:"description"`
	Cast        []string `json:"cast"`
	Director    string   `json:"director"`
}

// Theatre is a venue with one or more screens.
type Theatre struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Location string   `json:"location"`
	Screens  []Screen `json:"screens"`
}

// Screen is one auditorium in a theatre, running a single movie at
// the listed showtimes for a flat price per seat.
//
// Fields:
//  ScreenID   – catalog id, unique across theatres.
//  ScreenName – display name ("Screen 1", "IMAX").
//  MovieID    – movie shown on this screen.
//  Price      – price per seat in currency units.
//  Showtimes  – showtime labels.
//  SeatLayout – grid dimensions and statically booked seats.
type Screen struct {
	ScreenID   string          `json:"screenId"`
	ScreenName string          `json:"screenName"`
	MovieID    string          `json:"movieId"`
	Price      decimal.Decimal `json:"price"`
	Showtimes  []string        `json:"showtimes"`
	SeatLayout SeatLayout      `json:"seatLayout"`
}

// HasShowtime reports whether t is one of the screen's showtimes.
func (s Screen) HasShowtime(t string) bool {
	for _, st := range s.Showtimes {
		if st == t {
			return true
		}
	}
	return false
}

// SeatLayout describes a rectangular seat grid.
type SeatLayout struct {
	Rows        int      `json:"rows"`
	SeatsPerRow int      `json:"seatsPerRow"`
	BookedSeats []SeatID `json:"bookedSeats"`
}
