package api

import (
	"net/http"

	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/http/response"
)

// feedIdentifier resolves the "key" query parameter into a feed
// identifier. A nil return means the response has already been written.
func (s *Server) feedIdentifier(w http.ResponseWriter, r *http.Request) feedid.Identifier {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.BadRequest(w, "Feed key is required", s.logger)
		return nil
	}

	id, err := feedid.Parse(key)
	if err != nil {
		response.BadRequest(w, "Unrecognized feed key", s.logger)
		return nil
	}
	return id
}

// handleGetFeed returns the feed's cached data, fetching through to the
// network when the cache is empty or stale.
// GET /api/v1/feeds?key={uniqueKey}
func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := s.feedIdentifier(w, r)
	if id == nil {
		return
	}

	data, err := s.manager.GetFeed(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get feed", "error", err, "feed", id.UniqueKey())
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, data, s.logger)
}

// handleRefreshFeed drops the cached first page and refetches it.
// POST /api/v1/feeds/refresh?key={uniqueKey}
func (s *Server) handleRefreshFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := s.feedIdentifier(w, r)
	if id == nil {
		return
	}

	if err := s.manager.Refresh(ctx, id); err != nil {
		s.logger.Error("Failed to refresh feed", "error", err, "feed", id.UniqueKey())
		response.HandleError(w, err, s.logger)
		return
	}

	data, err := s.cache.GetFeedData(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, data, s.logger)
}

// handleLoadMore appends the feed's next page.
// POST /api/v1/feeds/more?key={uniqueKey}
func (s *Server) handleLoadMore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := s.feedIdentifier(w, r)
	if id == nil {
		return
	}

	data, err := s.cache.GetFeedData(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.manager.LoadMore(ctx, data); err != nil {
		s.logger.Error("Failed to load more", "error", err, "feed", id.UniqueKey())
		response.HandleError(w, err, s.logger)
		return
	}

	data, err = s.cache.GetFeedData(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, data, s.logger)
}

// handlePrependNew pulls items newer than the cached head to the front.
// POST /api/v1/feeds/new?key={uniqueKey}
func (s *Server) handlePrependNew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := s.feedIdentifier(w, r)
	if id == nil {
		return
	}

	if err := s.manager.PrependNew(ctx, id); err != nil {
		s.logger.Error("Failed to prepend new items", "error", err, "feed", id.UniqueKey())
		response.HandleError(w, err, s.logger)
		return
	}

	data, err := s.cache.GetFeedData(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, data, s.logger)
}

// handleDropFeed removes the feed row and its memberships from the cache.
// DELETE /api/v1/feeds?key={uniqueKey}
func (s *Server) handleDropFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := s.feedIdentifier(w, r)
	if id == nil {
		return
	}

	if err := s.manager.Drop(ctx, id); err != nil {
		s.logger.Error("Failed to drop feed", "error", err, "feed", id.UniqueKey())
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
