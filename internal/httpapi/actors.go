package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"casting.org/internal/agency"
	"casting.org/internal/audit"
)

type actorCreateRequest struct {
	Name   string `json:"name"`
	Age    *int   `json:"age"`
	Gender string `json:"gender"`
}

type actorPatchRequest struct {
	Name   *string `json:"name"`
	Age    *int    `json:"age"`
	Gender *string `json:"gender"`
}

func (a *API) listActors(w http.ResponseWriter, r *http.Request) {
	actors, err := a.agency.ListActors(r.Context())
	if err != nil {
		handleAgencyError(w, err)
		return
	}
	if actors == nil {
		actors = []agency.Actor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"actors":       actors,
		"total_actors": len(actors),
	})
}

func (a *API) createActor(w http.ResponseWriter, r *http.Request) {
	var req actorCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.Age == nil || req.Gender == "" {
		writeError(w, http.StatusBadRequest, "Missing required actor fields")
		return
	}

	actor, err := a.agency.CreateActor(r.Context(), agency.ActorInput{
		Name:   req.Name,
		Age:    *req.Age,
		Gender: req.Gender,
	})
	if err != nil {
		handleAgencyError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "actor.create", map[string]any{
		"actor_id": actor.ID,
		"name":     actor.Name,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"created": actor.ID,
		"actor":   actor,
	})
}

func (a *API) updateActor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req actorPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, err := a.agency.UpdateActor(r.Context(), id, agency.ActorPatch{
		Name:   req.Name,
		Age:    req.Age,
		Gender: req.Gender,
	})
	if err != nil {
		handleAgencyError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "actor.update", map[string]any{
		"actor_id": actor.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"actor":   actor,
	})
}

func (a *API) deleteActor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := a.agency.DeleteActor(r.Context(), id); err != nil {
		handleAgencyError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "actor.delete", map[string]any{
		"actor_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": id,
	})
}

// pathID parses the {id} route variable. The route pattern already
// restricts it to digits; the parse guards against overflow.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "resource not found")
		return 0, false
	}
	return id, true
}
