package httpapi

import (
	"net/http"

	"casting.org/internal/agency"
	"casting.org/internal/audit"
)

type movieCreateRequest struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type moviePatchRequest struct {
	Title       *string `json:"title"`
	ReleaseDate *string `json:"release_date"`
}

func (a *API) listMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := a.agency.ListMovies(r.Context())
	if err != nil {
		handleAgencyError(w, err)
		return
	}
	if movies == nil {
		movies = []agency.Movie{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"movies":       movies,
		"total_movies": len(movies),
	})
}

func (a *API) createMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" || req.ReleaseDate == "" {
		writeError(w, http.StatusBadRequest, "Missing required movie fields")
		return
	}
	release, err := agency.ParseDate(req.ReleaseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "release_date must be YYYY-MM-DD")
		return
	}

	movie, err := a.agency.CreateMovie(r.Context(), agency.MovieInput{
		Title:       req.Title,
		ReleaseDate: release,
	})
	if err != nil {
		handleAgencyError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "movie.create", map[string]any{
		"movie_id": movie.ID,
		"title":    movie.Title,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"created": movie.ID,
		"movie":   movie,
	})
}

func (a *API) updateMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req moviePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	patch := agency.MoviePatch{Title: req.Title}
	if req.ReleaseDate != nil {
		release, err := agency.ParseDate(*req.ReleaseDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "release_date must be YYYY-MM-DD")
			return
		}
		patch.ReleaseDate = &release
	}

	movie, err := a.agency.UpdateMovie(r.Context(), id, patch)
	if err != nil {
		handleAgencyError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "movie.update", map[string]any{
		"movie_id": movie.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"movie":   movie,
	})
}

func (a *API) deleteMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := a.agency.DeleteMovie(r.Context(), id); err != nil {
		handleAgencyError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "movie.delete", map[string]any{
		"movie_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": id,
	})
}
