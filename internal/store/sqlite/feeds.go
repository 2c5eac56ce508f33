package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/store"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type feedRow struct {
	id        int64
	digest    string
	closed    bool
	createdAt time.Time
}

func (s *Store) feedRowByKey(ctx context.Context, q queryer, uniqueKey string) (*feedRow, error) {
	var (
		fr        feedRow
		createdAt string
		closed    int
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, COALESCE(next_page_token, ''), created_at, is_closed
		 FROM feeds WHERE unique_key = ?`, uniqueKey).
		Scan(&fr.id, &fr.digest, &createdAt, &closed)
	if err != nil {
		return nil, err
	}
	fr.createdAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	fr.closed = closed != 0
	return &fr, nil
}

// InsertFeed merges one feed page. With append == false the feed row is
// replaced and its memberships cascade away first; with append == true an
// existing row is left untouched and only created if absent. Either way
// the page's items are merged and a feed notification fires, unless the
// page matches what is already stored.
func (s *Store) InsertFeed(ctx context.Context, id feedid.Identifier, page domain.FeedPage, mode store.CloseMode, appendPage bool) error {
	key := id.UniqueKey()
	s.logger.Debug("insert feed", "feed", key, "digest", page.Digest, "append", appendPage)

	now := time.Now()

	same, err := s.sameAsStored(ctx, key, page, now)
	if err != nil {
		return err
	}
	if same {
		s.logger.Debug("feed matches stored state, skipping write", "feed", key)
		s.metrics.RecordNoopSkip()
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	feedID, err := s.upsertFeedRow(ctx, tx, key, page.Digest, mode, appendPage, now)
	if err != nil {
		return err
	}

	if err := s.saveFeedPage(ctx, tx, feedID, page, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.metrics.RecordItemsUpserted(len(page.Items) + len(page.NewItems))
	s.notify(id)
	return nil
}

// UpdateFeed advances the feed's digest from previousDigest to the page's
// digest and merges the page's items. The digest precondition makes the
// first committer win when two continuations race; the loser gets
// store.ErrStaleDigest and no rows change.
func (s *Store) UpdateFeed(ctx context.Context, id feedid.Identifier, previousDigest string, page domain.FeedPage) error {
	key := id.UniqueKey()
	s.logger.Debug("update feed", "feed", key, "previous_digest", previousDigest, "digest", page.Digest)

	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := s.advanceDigest(ctx, tx, key, page.Digest, previousDigest)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("digest advanced by a concurrent continuation", "feed", key)
		s.metrics.RecordDigestRace()
		return store.ErrStaleDigest
	}

	fr, err := s.feedRowByKey(ctx, tx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return s.broken(fmt.Errorf("feed %s vanished during digest update", key))
	}
	if err != nil {
		return err
	}

	if err := s.saveFeedPage(ctx, tx, fr.id, page, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.metrics.RecordItemsUpserted(len(page.Items) + len(page.NewItems))
	s.notify(id)
	return nil
}

// CloseFeed marks the feed as having no further pages, guarded by the
// same digest precondition as UpdateFeed. Losing the race is normal, the
// feed was deleted or refreshed a moment ago.
func (s *Store) CloseFeed(ctx context.Context, id feedid.Identifier, previousDigest string) error {
	key := id.UniqueKey()
	s.logger.Debug("close feed", "feed", key)

	ok, err := s.advanceDigest(ctx, s.db, key, "", previousDigest)
	if err != nil {
		return err
	}
	if !ok {
		s.metrics.RecordDigestRace()
		return store.ErrStaleDigest
	}

	s.notify(id)
	return nil
}

// Delete removes the feed row; memberships cascade away. The notification
// fires whether or not a row existed.
func (s *Store) Delete(ctx context.Context, id feedid.Identifier) error {
	s.logger.Debug("delete feed", "feed", id.UniqueKey())

	if err := s.deleteFeedRow(ctx, id); err != nil {
		return err
	}
	s.notify(id)
	return nil
}

func (s *Store) deleteFeedRow(ctx context.Context, id feedid.Identifier) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feeds WHERE unique_key = ?`, id.UniqueKey())
	return err
}

const feedItemsQuery = `SELECT ` + itemColumns + `
	FROM items
	JOIN feed_item ON feed_item.item_id = items.id
	WHERE feed_item.feed_id = ?
	  AND items.deleted = 0
	  AND items.content_id NOT IN (SELECT content_id FROM blocked_items)
	  AND items.owner NOT IN (SELECT username FROM blocked_users)
	ORDER BY feed_item.index_in_feed`

// GetFeedData returns the feed's metadata and its ordered,
// moderation-filtered items. A feed that was never cached yields an
// empty, not-closed FeedData.
func (s *Store) GetFeedData(ctx context.Context, id feedid.Identifier) (*domain.FeedData, error) {
	key := id.UniqueKey()

	fr, err := s.feedRowByKey(ctx, s.db, key)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.FeedData{Info: domain.FeedInfo{UniqueKey: key}}, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := s.feedItems(ctx, fr.id)
	if err != nil {
		return nil, err
	}

	return &domain.FeedData{
		Info: domain.FeedInfo{
			UniqueKey: key,
			Digest:    fr.digest,
			Closed:    fr.closed,
			CreatedAt: fr.createdAt,
		},
		Items: items,
	}, nil
}

// RemoveFromRecent drops the membership linking the recent feed to the
// item. The item stays cached and no notification fires, the recent view
// refreshes itself on its own schedule.
func (s *Store) RemoveFromRecent(ctx context.Context, item *domain.Item) error {
	s.logger.Debug("remove from recent", "content_id", item.ContentID)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM feed_item
		 WHERE feed_id = (SELECT id FROM feeds WHERE unique_key = ?)
		   AND item_id = (SELECT id FROM items WHERE content_id = ?)`,
		feedid.Recent().UniqueKey(), item.ContentID)
	return err
}

// upsertFeedRow applies the feed-row policy for InsertFeed and returns
// the feeds rowid the page merges into.
func (s *Store) upsertFeedRow(ctx context.Context, tx *sql.Tx, key, digest string, mode store.CloseMode, appendPage bool, now time.Time) (int64, error) {
	if appendPage {
		fr, err := s.feedRowByKey(ctx, tx, key)
		if err == nil {
			return fr.id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	} else {
		if _, err := tx.ExecContext(ctx, `DELETE FROM feeds WHERE unique_key = ?`, key); err != nil {
			return 0, err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO feeds (unique_key, next_page_token, created_at, is_closed) VALUES (?, ?, ?, ?)`,
		key, digest, formatTime(now), boolToInt(!mode.IsOpen(digest)))
	if err != nil {
		return 0, fmt.Errorf("insert feed %s: %w", key, err)
	}
	return res.LastInsertId()
}

// advanceDigest is the optimistic concurrency step. The WHERE clause
// requires the digest the caller last observed; zero affected rows means
// another writer got there first.
func (s *Store) advanceDigest(ctx context.Context, e execer, key, digest, previousDigest string) (bool, error) {
	res, err := e.ExecContext(ctx,
		`UPDATE feeds SET next_page_token = ?, is_closed = ?
		 WHERE unique_key = ? AND next_page_token = ?`,
		digest, boolToInt(digest == ""), key, previousDigest)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// saveFeedPage merges the page's item lists into the feed. Appended items
// continue past the stored maximum index, prepended items walk below the
// stored minimum. Prepended items are assigned in reverse so the incoming
// list order is preserved once read back ascending.
func (s *Store) saveFeedPage(ctx context.Context, tx *sql.Tx, feedID int64, page domain.FeedPage, now time.Time) error {
	if page.IsEmpty() {
		return nil
	}

	minIdx, err := s.indexExtreme(ctx, tx, feedID, "MIN")
	if err != nil {
		return err
	}
	maxIdx, err := s.indexExtreme(ctx, tx, feedID, "MAX")
	if err != nil {
		return err
	}

	appendIdx := newFeedIndexer(maxIdx, true)
	for i := range page.Items {
		if err := s.saveMembership(ctx, tx, feedID, &page.Items[i], appendIdx, false, now); err != nil {
			return err
		}
	}

	prependIdx := newFeedIndexer(minIdx, false)
	for i := len(page.NewItems) - 1; i >= 0; i-- {
		if err := s.saveMembership(ctx, tx, feedID, &page.NewItems[i], prependIdx, true, now); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) indexExtreme(ctx context.Context, tx *sql.Tx, feedID int64, fn string) (int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(`+fn+`(index_in_feed), 0) FROM feed_item WHERE feed_id = ?`, feedID).Scan(&v)
	return v, err
}

// saveMembership upserts the item and links it to the feed. An existing
// membership keeps its index on the append path (idempotent re-insert)
// and is recreated at the new position on the prepend path, a newly
// arrived item moves to the front even if already cached further back.
func (s *Store) saveMembership(ctx context.Context, tx *sql.Tx, feedID int64, it *domain.Item, idx *feedIndexer, replace bool, now time.Time) error {
	itemID, err := s.upsertItem(ctx, tx, it, now)
	if err != nil {
		return err
	}

	var relID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM feed_item WHERE feed_id = ? AND item_id = ?`, feedID, itemID).Scan(&relID)
	switch {
	case err == nil:
		if !replace {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM feed_item WHERE id = ?`, relID); err != nil {
			return err
		}
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO feed_item (feed_id, item_id, index_in_feed) VALUES (?, ?, ?)`,
		feedID, itemID, idx.next())
	if err != nil {
		return fmt.Errorf("insert membership for %s: %w", it.ContentID, err)
	}
	return nil
}

// sameAsStored implements the no-op short-circuit: skip the write when
// the page brings nothing to prepend, the feed is still fresh, and the
// stored visible item ids start with the page's ids position for
// position. A stored list longer than the page still matches.
func (s *Store) sameAsStored(ctx context.Context, key string, page domain.FeedPage, now time.Time) (bool, error) {
	if len(page.NewItems) > 0 {
		return false, nil
	}

	fr, err := s.feedRowByKey(ctx, s.db, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if fr.createdAt.Add(s.staleAfter).Before(now) {
		return false, nil
	}

	stored, err := s.feedContentIDs(ctx, fr.id)
	if err != nil {
		return false, err
	}
	if len(stored) < len(page.Items) {
		return false, nil
	}
	for i := range page.Items {
		if stored[i] != page.Items[i].ContentID {
			return false, nil
		}
	}
	return true, nil
}

func (s *Store) feedContentIDs(ctx context.Context, feedID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT items.content_id
		 FROM items
		 JOIN feed_item ON feed_item.item_id = items.id
		 WHERE feed_item.feed_id = ?
		   AND items.deleted = 0
		   AND items.content_id NOT IN (SELECT content_id FROM blocked_items)
		   AND items.owner NOT IN (SELECT username FROM blocked_users)
		 ORDER BY feed_item.index_in_feed`, feedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) feedItems(ctx context.Context, feedID int64) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, feedItemsQuery, feedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}
