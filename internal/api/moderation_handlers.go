package api

import (
	"context"
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/http/response"
)

// flagRequest is the body for every moderation toggle. Value true sets
// the flag or block; false clears it.
type flagRequest struct {
	Value bool `json:"value"`
}

func (s *Server) decodeFlag(w http.ResponseWriter, r *http.Request) (flagRequest, bool) {
	var req flagRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return req, false
	}
	return req, true
}

// handleItemFlag is the shared body of the per-item moderation toggles.
// The item must already be cached; moderation never reaches the network.
func (s *Server) handleItemFlag(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, item *domain.Item, value bool) error) {
	ctx := r.Context()

	contentID := chi.URLParam(r, "contentID")
	if contentID == "" {
		response.BadRequest(w, "Content ID is required", s.logger)
		return
	}

	req, ok := s.decodeFlag(w, r)
	if !ok {
		return
	}

	item, err := s.cache.GetItem(ctx, contentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := apply(ctx, item, req.Value); err != nil {
		s.logger.Error("Failed to update item flag", "error", err, "content_id", contentID)
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleMarkDeleted soft-deletes or restores an item.
// PUT /api/v1/moderation/items/{contentID}/deleted
func (s *Server) handleMarkDeleted(w http.ResponseWriter, r *http.Request) {
	s.handleItemFlag(w, r, s.cache.MarkDeleted)
}

// handleMarkPublished updates the item's published flag.
// PUT /api/v1/moderation/items/{contentID}/published
func (s *Server) handleMarkPublished(w http.ResponseWriter, r *http.Request) {
	s.handleItemFlag(w, r, s.cache.MarkPublished)
}

// handleMarkNSFW updates the item's nsfw flag.
// PUT /api/v1/moderation/items/{contentID}/nsfw
func (s *Server) handleMarkNSFW(w http.ResponseWriter, r *http.Request) {
	s.handleItemFlag(w, r, s.cache.MarkNSFW)
}

// handleBlockItem hides or unhides one item in every feed's filtered view.
// PUT /api/v1/moderation/items/{contentID}/blocked
func (s *Server) handleBlockItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contentID := chi.URLParam(r, "contentID")
	if contentID == "" {
		response.BadRequest(w, "Content ID is required", s.logger)
		return
	}

	req, ok := s.decodeFlag(w, r)
	if !ok {
		return
	}

	if err := s.cache.BlockItem(ctx, contentID, req.Value); err != nil {
		s.logger.Error("Failed to block item", "error", err, "content_id", contentID)
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleBlockUser hides or unhides every item owned by a user.
// PUT /api/v1/moderation/users/{username}/blocked
func (s *Server) handleBlockUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := chi.URLParam(r, "username")
	if username == "" {
		response.BadRequest(w, "Username is required", s.logger)
		return
	}

	req, ok := s.decodeFlag(w, r)
	if !ok {
		return
	}

	if err := s.cache.BlockUser(ctx, username, req.Value); err != nil {
		s.logger.Error("Failed to block user", "error", err, "username", username)
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
