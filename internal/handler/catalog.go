package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticket-checkout/internal/catalog"
	"github.com/iliyamo/cinema-ticket-checkout/internal/model"
)

// CatalogHandler serves the home view and the movie view.
type CatalogHandler struct {
	Catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	if cat == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: cat}
}

// movieView is a movie with the theatres and showtimes running it.
type movieView struct {
	Movie    model.Movie     `json:"movie"`
	Theatres []model.Theatre `json:"theatres"`
}

// ListMovies returns every movie in the catalog.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Catalog.Movies()})
}

// GetMovie returns one movie with the theatres showing it.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id := c.Param("movieId")
	m, err := h.Catalog.Movie(id)
	if err != nil {
		if errors.Is(err, catalog.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "catalog error"})
	}
	theatres := h.Catalog.TheatresShowing(id)
	if theatres == nil {
		theatres = []model.Theatre{}
	}
	return c.JSON(http.StatusOK, movieView{Movie: m, Theatres: theatres})
}
