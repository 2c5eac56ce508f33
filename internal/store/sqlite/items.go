package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gfycat/feedcore/internal/domain"
	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/store"
)

// itemColumns is the ordered list of columns selected in item queries.
// Must match the scan order in scanItem.
const itemColumns = `content_id, display_name, number, width, height,
	poster_url, png_poster_url, mobile_poster_url, mini_poster_url, thumb100_poster_url,
	mp4_url, mobile_url, mini_url, gif_url, webm_url, webp_url, gif100_url,
	max1mb_gif_url, max2mb_gif_url, max5mb_gif_url,
	mp4_size, webm_size, owner, server_created_at, local_created_at, views,
	title, description, projection_type, tags,
	deleted, nsfw, published, has_transparency, has_audio,
	content_rating, num_frames, frame_rate, avg_color`

// scanItem scans a sql.Row (or sql.Rows via its Scan method) into a domain.Item.
func scanItem(scanner interface{ Scan(dest ...any) error }) (*domain.Item, error) {
	var it domain.Item

	var (
		serverCreatedAt string
		localCreatedAt  string
		title           sql.NullString
		description     sql.NullString
		projection      sql.NullString
		tags            []byte
		deleted         int
		nsfw            int
		published       int
		hasTransparency int
		hasAudio        int
		contentRating   sql.NullString
		avgColor        sql.NullString
	)

	err := scanner.Scan(
		&it.ContentID,
		&it.Name,
		&it.Number,
		&it.Width,
		&it.Height,
		&it.URLs.Poster,
		&it.URLs.PNGPoster,
		&it.URLs.MobilePoster,
		&it.URLs.MiniPoster,
		&it.URLs.Thumb100Poster,
		&it.URLs.MP4,
		&it.URLs.Mobile,
		&it.URLs.Mini,
		&it.URLs.GIF,
		&it.URLs.WebM,
		&it.URLs.WebP,
		&it.URLs.GIF100px,
		&it.URLs.Max1MBGIF,
		&it.URLs.Max2MBGIF,
		&it.URLs.Max5MBGIF,
		&it.MP4Size,
		&it.WebMSize,
		&it.Owner,
		&serverCreatedAt,
		&localCreatedAt,
		&it.Views,
		&title,
		&description,
		&projection,
		&tags,
		&deleted,
		&nsfw,
		&published,
		&hasTransparency,
		&hasAudio,
		&contentRating,
		&it.NumFrames,
		&it.FrameRate,
		&avgColor,
	)
	if err != nil {
		return nil, err
	}

	it.ServerCreatedAt, err = parseTime(serverCreatedAt)
	if err != nil {
		return nil, err
	}
	it.LocalCreatedAt, err = parseTime(localCreatedAt)
	if err != nil {
		return nil, err
	}

	if title.Valid {
		it.Title = title.String
	}
	if description.Valid {
		it.Description = description.String
	}
	if projection.Valid {
		it.Projection = domain.ProjectionType(projection.String)
	}
	if contentRating.Valid {
		it.ContentRating = domain.ContentRating(contentRating.String)
	}
	if avgColor.Valid {
		it.AvgColor = avgColor.String
	}
	it.Deleted = deleted != 0
	it.NSFW = nsfw != 0
	it.Published = published != 0
	it.HasTransparency = hasTransparency != 0
	it.HasAudio = hasAudio != 0

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &it.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", it.ContentID, err)
		}
	}

	return &it, nil
}

// tagsBlob serializes the tag list for the tags BLOB column. Empty lists
// are stored as NULL.
func tagsBlob(tags []string) ([]byte, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	return json.Marshal(tags)
}

// itemUpsertArgs produces the argument list shared by the item INSERT and
// UPDATE statements. The deleted flag is deliberately absent: network
// payloads never resurrect a locally soft-deleted item.
func itemUpsertArgs(it *domain.Item, now time.Time) ([]any, error) {
	tags, err := tagsBlob(it.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags for %s: %w", it.ContentID, err)
	}

	local := it.LocalCreatedAt
	if local.IsZero() {
		local = now
	}

	return []any{
		it.ContentID,
		it.Name,
		it.Number,
		it.Width,
		it.Height,
		it.URLs.Poster,
		it.URLs.PNGPoster,
		it.URLs.MobilePoster,
		it.URLs.MiniPoster,
		it.URLs.Thumb100Poster,
		it.URLs.MP4,
		it.URLs.Mobile,
		it.URLs.Mini,
		it.URLs.GIF,
		it.URLs.WebM,
		it.URLs.WebP,
		it.URLs.GIF100px,
		it.URLs.Max1MBGIF,
		it.URLs.Max2MBGIF,
		it.URLs.Max5MBGIF,
		it.MP4Size,
		it.WebMSize,
		it.Owner,
		formatTime(it.ServerCreatedAt),
		formatTime(local),
		it.Views,
		nullString(it.Title),
		nullString(it.Description),
		nullString(string(it.Projection)),
		tags,
		boolToInt(it.NSFW),
		boolToInt(it.Published),
		boolToInt(it.HasTransparency),
		boolToInt(it.HasAudio),
		nullString(string(it.ContentRating)),
		it.NumFrames,
		it.FrameRate,
		nullString(it.AvgColor),
	}, nil
}

const itemUpsertColumns = `content_id, display_name, number, width, height,
	poster_url, png_poster_url, mobile_poster_url, mini_poster_url, thumb100_poster_url,
	mp4_url, mobile_url, mini_url, gif_url, webm_url, webp_url, gif100_url,
	max1mb_gif_url, max2mb_gif_url, max5mb_gif_url,
	mp4_size, webm_size, owner, server_created_at, local_created_at, views,
	title, description, projection_type, tags,
	nsfw, published, has_transparency, has_audio,
	content_rating, num_frames, frame_rate, avg_color`

const itemUpdateSet = `content_id = ?, display_name = ?, number = ?, width = ?, height = ?,
	poster_url = ?, png_poster_url = ?, mobile_poster_url = ?, mini_poster_url = ?, thumb100_poster_url = ?,
	mp4_url = ?, mobile_url = ?, mini_url = ?, gif_url = ?, webm_url = ?, webp_url = ?, gif100_url = ?,
	max1mb_gif_url = ?, max2mb_gif_url = ?, max5mb_gif_url = ?,
	mp4_size = ?, webm_size = ?, owner = ?, server_created_at = ?, local_created_at = ?, views = ?,
	title = ?, description = ?, projection_type = ?, tags = ?,
	nsfw = ?, published = ?, has_transparency = ?, has_audio = ?,
	content_rating = ?, num_frames = ?, frame_rate = ?, avg_color = ?`

const itemUpsertPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

// GetItem returns the cached item with the given content id.
// Returns store.ErrNotFound if it was never cached.
func (s *Store) GetItem(ctx context.Context, contentID string) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE content_id = ?`, contentID)

	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// itemDBID resolves a content id to the items rowid, or sql.ErrNoRows.
func (s *Store) itemDBID(ctx context.Context, q queryer, contentID string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM items WHERE content_id = ?`, contentID).Scan(&id)
	return id, err
}

// upsertItem inserts the item or updates the existing row with the same
// content id, returning the items rowid either way.
func (s *Store) upsertItem(ctx context.Context, tx *sql.Tx, it *domain.Item, now time.Time) (int64, error) {
	args, err := itemUpsertArgs(it, now)
	if err != nil {
		return 0, err
	}

	id, err := s.itemDBID(ctx, tx, it.ContentID)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO items (`+itemUpsertColumns+`) VALUES (`+itemUpsertPlaceholders+`)`, args...)
		if err != nil {
			return 0, fmt.Errorf("insert item %s: %w", it.ContentID, err)
		}
		return res.LastInsertId()
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET `+itemUpdateSet+` WHERE id = ?`, append(args, id)...); err != nil {
		return 0, fmt.Errorf("update item %s: %w", it.ContentID, err)
	}
	return id, nil
}

// updateItemFlag flips one moderation column on one item and fires a
// global notification, since flag changes affect every feed's filtered
// view. Anything other than exactly one affected row is an invariant
// violation.
func (s *Store) updateItemFlag(ctx context.Context, column, contentID string, value bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET `+column+` = ? WHERE content_id = ?`, boolToInt(value), contentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return s.broken(fmt.Errorf("set %s on item %s affected %d rows", column, contentID, n))
	}

	s.notifyAll()
	return nil
}

// MarkDeleted soft-deletes or restores an item. Deleting also drops the
// single-item feed wrapping it, so the item cannot resurface there.
func (s *Store) MarkDeleted(ctx context.Context, item *domain.Item, deleted bool) error {
	s.logger.Debug("mark deleted", "content_id", item.ContentID, "deleted", deleted)
	if deleted {
		if err := s.deleteFeedRow(ctx, feedid.FromSingleItem(item.ContentID)); err != nil {
			return err
		}
	}
	return s.updateItemFlag(ctx, "deleted", item.ContentID, deleted)
}

// MarkPublished updates the item's published flag.
func (s *Store) MarkPublished(ctx context.Context, item *domain.Item, published bool) error {
	return s.updateItemFlag(ctx, "published", item.ContentID, published)
}

// MarkNSFW updates the item's nsfw flag.
func (s *Store) MarkNSFW(ctx context.Context, item *domain.Item, nsfw bool) error {
	return s.updateItemFlag(ctx, "nsfw", item.ContentID, nsfw)
}

// queryer covers *sql.DB and *sql.Tx for read helpers.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
