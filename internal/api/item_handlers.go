package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gfycat/feedcore/internal/http/response"
)

// handleGetItem returns a single cached item, fetching through to the
// network on a cache miss.
// GET /api/v1/items/{contentID}
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contentID := chi.URLParam(r, "contentID")
	if contentID == "" {
		response.BadRequest(w, "Content ID is required", s.logger)
		return
	}

	item, err := s.manager.GetItem(ctx, contentID)
	if err != nil {
		s.logger.Error("Failed to get item", "error", err, "content_id", contentID)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, item, s.logger)
}

// handleAddRecent appends the item to the recently-viewed feed.
// POST /api/v1/items/{contentID}/recent
func (s *Server) handleAddRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contentID := chi.URLParam(r, "contentID")
	if contentID == "" {
		response.BadRequest(w, "Content ID is required", s.logger)
		return
	}

	item, err := s.manager.GetItem(ctx, contentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.manager.AddRecent(ctx, item); err != nil {
		s.logger.Error("Failed to add recent item", "error", err, "content_id", contentID)
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleRemoveRecent drops the item from the recently-viewed feed.
// DELETE /api/v1/items/{contentID}/recent
func (s *Server) handleRemoveRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	contentID := chi.URLParam(r, "contentID")
	if contentID == "" {
		response.BadRequest(w, "Content ID is required", s.logger)
		return
	}

	item, err := s.cache.GetItem(ctx, contentID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.manager.RemoveRecent(ctx, item); err != nil {
		s.logger.Error("Failed to remove recent item", "error", err, "content_id", contentID)
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
