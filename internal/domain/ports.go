package domain

import "context"

// PostStore defines the session store operations for ingested posts and
// their comments. Comments travel embedded in their parent Post.
type PostStore interface {
	// ReplacePosts clears the working collections and inserts the given
	// posts (full reload).
	ReplacePosts(ctx context.Context, posts []Post) error

	// AppendPosts inserts the given posts without touching existing ones
	// (incremental load).
	AppendPosts(ctx context.Context, posts []Post) error

	// Posts returns all stored posts, comments reattached, ordered by
	// creation time descending.
	Posts(ctx context.Context) ([]Post, error)

	// Comments returns all stored comments.
	Comments(ctx context.Context) ([]Comment, error)

	// CountPosts returns the number of stored posts.
	CountPosts(ctx context.Context) (int, error)
}

// CursorStore defines persistence for per-group continuation tokens. Each
// group id has a single writer; a token is replaced or cleared once
// consumed, never reused.
type CursorStore interface {
	// Cursors returns the current group id -> token map.
	Cursors(ctx context.Context) (map[string]string, error)

	// UpsertCursor stores the continuation token for a group.
	UpsertCursor(ctx context.Context, groupID, token string) error

	// ClearCursor removes the stored token for a group.
	ClearCursor(ctx context.Context, groupID string) error
}

// ContactStore defines persistence for resolved contacts, keyed by author
// id. Entries are write-once per identifier in practice; a re-resolve
// overwrites (last writer wins).
type ContactStore interface {
	// Contact returns the stored contact for an author id. The second
	// return is false when no lookup has completed for that id yet.
	Contact(ctx context.Context, authorID string) (Contact, bool, error)

	// UpsertContact stores a lookup result for an author id.
	UpsertContact(ctx context.Context, authorID string, c Contact) error
}

// CustomerStore defines persistence for the customer ledger.
type CustomerStore interface {
	// Customer returns the customer with the given id, or nil when none
	// exists.
	Customer(ctx context.Context, id string) (*Customer, error)

	// SaveCustomer upserts a customer record.
	SaveCustomer(ctx context.Context, c *Customer) error

	// Customers returns all customers ordered by score descending.
	Customers(ctx context.Context) ([]Customer, error)
}

// Notifier delivers lead alerts. Delivery is an external concern; failures
// are logged by the caller, never propagated.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}
