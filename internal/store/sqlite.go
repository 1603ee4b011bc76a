// Package store implements the session state stores over an in-memory
// SQLite database. Nothing survives a process restart; the database exists
// to give the working collections upsert semantics with a single writer
// per key.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
	_ "modernc.org/sqlite"
)

// DefaultDSN keeps the whole session in memory.
const DefaultDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id          TEXT PRIMARY KEY,
	group_id    TEXT NOT NULL,
	group_name  TEXT NOT NULL,
	author_id   TEXT NOT NULL,
	author_name TEXT NOT NULL,
	message     TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	images      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS comments (
	id          TEXT PRIMARY KEY,
	post_id     TEXT NOT NULL,
	author_id   TEXT NOT NULL,
	author_name TEXT NOT NULL,
	message     TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cursors (
	group_id   TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS contacts (
	author_id  TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	found      INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS customers (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	phone           TEXT NOT NULL,
	status          TEXT NOT NULL,
	post_ids        TEXT NOT NULL,
	score           INTEGER NOT NULL,
	last_contact_at INTEGER NOT NULL,
	notes           TEXT NOT NULL
);`

// Store implements domain.PostStore, domain.CursorStore,
// domain.ContactStore, and domain.CustomerStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the store and creates the schema. An empty dsn selects
// DefaultDSN. The caller should Close the store when done.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database exists per connection; a single connection
	// keeps every store operation on the same database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplacePosts clears the working collections and inserts the given posts.
func (s *Store) ReplacePosts(ctx context.Context, posts []domain.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments`); err != nil {
		return fmt.Errorf("clear comments: %w", err)
	}
	if err := insertPosts(ctx, tx, posts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AppendPosts inserts the given posts, leaving existing rows untouched.
func (s *Store) AppendPosts(ctx context.Context, posts []domain.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertPosts(ctx, tx, posts); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertPosts(ctx context.Context, tx *sql.Tx, posts []domain.Post) error {
	for _, p := range posts {
		images, err := json.Marshal(p.Images)
		if err != nil {
			return fmt.Errorf("marshal images: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO posts (id, group_id, group_name, author_id, author_name, message, created_at, images)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.GroupID, p.GroupName, p.AuthorID, p.AuthorName, p.Message, p.CreatedAt.UnixMilli(), string(images),
		)
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}

		for _, c := range p.Comments {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO comments (id, post_id, author_id, author_name, message, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO NOTHING`,
				c.ID, c.PostID, c.AuthorID, c.AuthorName, c.Message, c.CreatedAt.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("insert comment: %w", err)
			}
		}
	}
	return nil
}

// Posts returns all stored posts with comments reattached, newest first.
func (s *Store) Posts(ctx context.Context) ([]domain.Post, error) {
	comments, err := s.Comments(ctx)
	if err != nil {
		return nil, err
	}
	byPost := make(map[string][]domain.Comment)
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], c)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, group_name, author_id, author_name, message, created_at, images
		FROM posts
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		var createdAt int64
		var images string
		if err := rows.Scan(&p.ID, &p.GroupID, &p.GroupName, &p.AuthorID, &p.AuthorName, &p.Message, &createdAt, &images); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.CreatedAt = time.UnixMilli(createdAt)
		if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
		p.Comments = byPost[p.ID]
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// Comments returns all stored comments.
func (s *Store) Comments(ctx context.Context) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, author_id, author_name, message, created_at
		FROM comments
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = time.UnixMilli(createdAt)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return comments, nil
}

// CountPosts returns the number of stored posts.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// Cursors returns the current group id -> continuation token map.
func (s *Store) Cursors(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_id, token FROM cursors`)
	if err != nil {
		return nil, fmt.Errorf("query cursors: %w", err)
	}
	defer rows.Close()

	cursors := make(map[string]string)
	for rows.Next() {
		var groupID, token string
		if err := rows.Scan(&groupID, &token); err != nil {
			return nil, fmt.Errorf("scan cursor: %w", err)
		}
		cursors[groupID] = token
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cursors: %w", err)
	}
	return cursors, nil
}

// UpsertCursor stores the continuation token for a group.
func (s *Store) UpsertCursor(ctx context.Context, groupID, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cursors (group_id, token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (group_id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		groupID, token, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}

// ClearCursor removes the stored token for a group.
func (s *Store) ClearCursor(ctx context.Context, groupID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cursors WHERE group_id = ?`, groupID); err != nil {
		return fmt.Errorf("clear cursor: %w", err)
	}
	return nil
}

// Contact returns the stored lookup result for an author id.
func (s *Store) Contact(ctx context.Context, authorID string) (domain.Contact, bool, error) {
	var c domain.Contact
	err := s.db.QueryRowContext(ctx,
		`SELECT value, found FROM contacts WHERE author_id = ?`, authorID,
	).Scan(&c.Value, &c.Found)
	if err == sql.ErrNoRows {
		return domain.Contact{}, false, nil
	}
	if err != nil {
		return domain.Contact{}, false, fmt.Errorf("query contact: %w", err)
	}
	return c, true, nil
}

// UpsertContact stores a lookup result for an author id. Last writer wins.
func (s *Store) UpsertContact(ctx context.Context, authorID string, c domain.Contact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (author_id, value, found, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (author_id) DO UPDATE SET value = excluded.value, found = excluded.found, updated_at = excluded.updated_at`,
		authorID, c.Value, c.Found, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// Customer returns the customer with the given id, or nil when absent.
func (s *Store) Customer(ctx context.Context, id string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, status, post_ids, score, last_contact_at, notes
		FROM customers WHERE id = ?`, id)

	c, err := scanCustomer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return c, nil
}

// SaveCustomer upserts a customer record.
func (s *Store) SaveCustomer(ctx context.Context, c *domain.Customer) error {
	postIDs, err := json.Marshal(c.PostIDs)
	if err != nil {
		return fmt.Errorf("marshal post ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, status, post_ids, score, last_contact_at, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			status = excluded.status,
			post_ids = excluded.post_ids,
			score = excluded.score,
			last_contact_at = excluded.last_contact_at,
			notes = excluded.notes`,
		c.ID, c.Name, c.Phone, string(c.Status), string(postIDs), c.Score, c.LastContactAt.UnixMilli(), c.Notes,
	)
	if err != nil {
		return fmt.Errorf("save customer: %w", err)
	}
	return nil
}

// Customers returns all customers ordered by score descending.
func (s *Store) Customers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, status, post_ids, score, last_contact_at, notes
		FROM customers
		ORDER BY score DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

func scanCustomer(scan func(...any) error) (*domain.Customer, error) {
	var c domain.Customer
	var status, postIDs string
	var lastContact int64
	if err := scan(&c.ID, &c.Name, &c.Phone, &status, &postIDs, &c.Score, &lastContact, &c.Notes); err != nil {
		return nil, err
	}
	c.Status = domain.CustomerStatus(status)
	c.LastContactAt = time.UnixMilli(lastContact)
	if err := json.Unmarshal([]byte(postIDs), &c.PostIDs); err != nil {
		return nil, fmt.Errorf("unmarshal post ids: %w", err)
	}
	return &c, nil
}
