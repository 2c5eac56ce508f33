// Command dbinspect dumps a feed cache database for debugging.
// It opens the database read-only and never mutates it.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func main() {
	defaultPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultPath = filepath.Join(home, ".feedcore", "feeds.db")
	}

	dbPath := flag.String("db", defaultPath, "Path to the cache database")
	feedKey := flag.String("feed", "", "Dump one feed's ordered items by unique key")
	flag.Parse()

	db, err := sql.Open("sqlite", "file:"+*dbPath+"?mode=ro")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *feedKey != "" {
		dumpFeed(db, *feedKey)
		return
	}

	dumpOverview(db)
}

func dumpOverview(db *sql.DB) {
	fmt.Println("=== Cache Inspection ===")
	fmt.Println()

	var items, deleted, feeds, closed, memberships int
	mustScan(db.QueryRow(`SELECT COUNT(*) FROM items`), &items)
	mustScan(db.QueryRow(`SELECT COUNT(*) FROM items WHERE deleted = 1`), &deleted)
	mustScan(db.QueryRow(`SELECT COUNT(*) FROM feeds`), &feeds)
	mustScan(db.QueryRow(`SELECT COUNT(*) FROM feeds WHERE is_closed = 1`), &closed)
	mustScan(db.QueryRow(`SELECT COUNT(*) FROM feed_item`), &memberships)

	fmt.Printf("Items:       %d (%d soft-deleted)\n", items, deleted)
	fmt.Printf("Feeds:       %d (%d closed)\n", feeds, closed)
	fmt.Printf("Memberships: %d\n", memberships)
	fmt.Println()

	fmt.Println("Feeds:")
	rows, err := db.Query(`
		SELECT f.unique_key, COALESCE(f.next_page_token, ''), f.is_closed, f.created_at,
		       (SELECT COUNT(*) FROM feed_item r WHERE r.feed_id = f.id)
		FROM feeds f ORDER BY f.unique_key`)
	if err != nil {
		log.Fatalf("Failed to list feeds: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, digest, createdAt string
		var isClosed, count int
		if err := rows.Scan(&key, &digest, &isClosed, &createdAt, &count); err != nil {
			log.Fatalf("Failed to scan feed: %v", err)
		}
		state := "open"
		if isClosed == 1 {
			state = "closed"
		}
		fmt.Printf("  %-40s items=%-5d %-6s digest=%q created=%s\n", key, count, state, digest, createdAt)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed to iterate feeds: %v", err)
	}

	dumpBlocklists(db)
}

func dumpBlocklists(db *sql.DB) {
	users := stringColumn(db, `SELECT username FROM blocked_users ORDER BY username`)
	items := stringColumn(db, `SELECT content_id FROM blocked_items ORDER BY content_id`)

	if len(users) == 0 && len(items) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("Moderation:")
	for _, u := range users {
		fmt.Printf("  blocked user: %s\n", u)
	}
	for _, it := range items {
		fmt.Printf("  blocked item: %s\n", it)
	}
}

func dumpFeed(db *sql.DB, key string) {
	var digest, createdAt string
	var isClosed int
	row := db.QueryRow(`SELECT COALESCE(next_page_token, ''), is_closed, created_at FROM feeds WHERE unique_key = ?`, key)
	if err := row.Scan(&digest, &isClosed, &createdAt); err != nil {
		log.Fatalf("Feed %q not found: %v", key, err)
	}

	fmt.Printf("Feed:    %s\n", key)
	fmt.Printf("Digest:  %q\n", digest)
	fmt.Printf("Closed:  %v\n", isClosed == 1)
	fmt.Printf("Created: %s\n", createdAt)
	fmt.Println()

	// Same ordering and moderation filter the daemon serves.
	rows, err := db.Query(`
		SELECT r.index_in_feed, i.content_id, i.owner, i.deleted, i.nsfw, i.published
		FROM feed_item r
		JOIN feeds f ON f.id = r.feed_id
		JOIN items i ON i.id = r.item_id
		WHERE f.unique_key = ?
		ORDER BY r.index_in_feed`, key)
	if err != nil {
		log.Fatalf("Failed to query feed items: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var index int64
		var contentID, owner string
		var deleted, nsfw, published int
		if err := rows.Scan(&index, &contentID, &owner, &deleted, &nsfw, &published); err != nil {
			log.Fatalf("Failed to scan item: %v", err)
		}
		flags := ""
		if deleted == 1 {
			flags += " deleted"
		}
		if nsfw == 1 {
			flags += " nsfw"
		}
		if published == 1 {
			flags += " published"
		}
		fmt.Printf("  [%5d] %-30s owner=%s%s\n", index, contentID, owner, flags)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed to iterate items: %v", err)
	}
}

func stringColumn(db *sql.DB, query string) []string {
	rows, err := db.Query(query)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Iterate failed: %v", err)
	}
	return out
}

func mustScan(row *sql.Row, dest ...any) {
	if err := row.Scan(dest...); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
}
