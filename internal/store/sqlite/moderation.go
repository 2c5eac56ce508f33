package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// BlockUser hides (or unhides) every item owned by username from all
// filtered reads.
func (s *Store) BlockUser(ctx context.Context, username string, block bool) error {
	s.logger.Debug("block user", "username", username, "block", block)
	return s.toggleBlock(ctx, "blocked_users", "username", username, block)
}

// BlockItem hides (or unhides) one item by content id.
func (s *Store) BlockItem(ctx context.Context, contentID string, block bool) error {
	s.logger.Debug("block item", "content_id", contentID, "block", block)
	return s.toggleBlock(ctx, "blocked_items", "content_id", contentID, block)
}

// toggleBlock inserts or deletes one moderation row and fires a global
// notification. The notification goes out before the row-count check,
// observers must re-read anyway. Anything but exactly one affected row is
// an invariant violation: blocking twice or unblocking something never
// blocked points at a caller bug.
func (s *Store) toggleBlock(ctx context.Context, table, column, value string, block bool) error {
	var (
		res sql.Result
		err error
	)
	if block {
		res, err = s.db.ExecContext(ctx, `INSERT INTO `+table+` (`+column+`) VALUES (?)`, value)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+column+` = ?`, value)
	}
	if err != nil {
		return err
	}

	s.notifyAll()

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return s.broken(fmt.Errorf("%s toggle for %q affected %d rows", table, value, n))
	}
	return nil
}
