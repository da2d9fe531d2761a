package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/mapservice"
	"github.com/starford/mindmaps/internal/models"
)

// Handler holds the mind-map route handlers.
type Handler struct {
	svc *mapservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *mapservice.Service) *Handler {
	return &Handler{svc: svc}
}

// caller returns the authenticated user. Routes are only reachable through
// AuthMiddleware, so a missing user is a wiring bug answered with 401.
func caller(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
	}
	return u, ok
}

// mapID parses the {id} segment. A malformed id is reported like a missing map.
func mapID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, "parse id", apperr.ErrNotFound)
		return 0, false
	}
	return id, true
}

// ListMaps handles GET /api/maps.
//
//	@Summary		List the caller's mind maps
//	@Tags			maps
//	@Produce		json
//	@Success		200	{array}		MindMap
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps [get]
func (h *Handler) ListMaps(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	maps, err := h.svc.List(r.Context(), u)
	if err != nil {
		writeError(w, "list maps", err, slog.Int64("user_id", u.ID))
		return
	}
	writeJSON(w, http.StatusOK, maps)
}

// CreateMap handles POST /api/maps.
//
//	@Summary		Create a mind map
//	@Tags			maps
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMapRequest	true	"Mind map to create"
//	@Success		201		{object}	MindMap
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps [post]
func (h *Handler) CreateMap(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	var req CreateMapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Create(r.Context(), u, req)
	if err != nil {
		writeError(w, "create map", err, slog.Int64("user_id", u.ID))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetMap handles GET /api/maps/{id}.
//
//	@Summary		Get one of the caller's mind maps
//	@Tags			maps
//	@Produce		json
//	@Param			id	path		int	true	"Mind map id"
//	@Success		200	{object}	MindMap
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps/{id} [get]
func (h *Handler) GetMap(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := mapID(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Get(r.Context(), u, id)
	if err != nil {
		writeError(w, "get map", err, slog.Int64("map_id", id))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateMap handles PUT /api/maps/{id}.
//
//	@Summary		Update title and/or data of a mind map
//	@Tags			maps
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Mind map id"
//	@Param			body	body		UpdateMapRequest	true	"Fields to change"
//	@Success		200		{object}	MindMap
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps/{id} [put]
func (h *Handler) UpdateMap(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := mapID(w, r)
	if !ok {
		return
	}
	var req UpdateMapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Update(r.Context(), u, id, req)
	if err != nil {
		writeError(w, "update map", err, slog.Int64("map_id", id))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMap handles DELETE /api/maps/{id}.
//
//	@Summary		Delete a mind map
//	@Tags			maps
//	@Param			id	path		int	true	"Mind map id"
//	@Success		200	{object}	messageResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps/{id} [delete]
func (h *Handler) DeleteMap(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := mapID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), u, id); err != nil {
		writeError(w, "delete map", err, slog.Int64("map_id", id))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "mind map deleted"})
}

// CopyMap handles POST /api/maps/{id}/copy.
//
//	@Summary		Duplicate a mind map
//	@Tags			maps
//	@Produce		json
//	@Param			id	path		int	true	"Mind map id"
//	@Success		201	{object}	MindMap
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps/{id}/copy [post]
func (h *Handler) CopyMap(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := mapID(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Copy(r.Context(), u, id)
	if err != nil {
		writeError(w, "copy map", err, slog.Int64("map_id", id))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// Outline handles GET /api/maps/{id}/outline.
//
//	@Summary		Flatten a mind map into sanitized outline items
//	@Tags			maps
//	@Produce		json
//	@Param			id	path		int	true	"Mind map id"
//	@Success		200	{object}	OutlineResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps/{id}/outline [get]
func (h *Handler) Outline(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := mapID(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Outline(r.Context(), u, id)
	if err != nil {
		writeError(w, "outline", err, slog.Int64("map_id", id))
		return
	}
	writeJSON(w, http.StatusOK, OutlineResponse{Items: items})
}

// Search handles GET /api/maps/search.
//
//	@Summary		Search the caller's mind maps
//	@Tags			maps
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/maps/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	u, ok := caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), u, q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
