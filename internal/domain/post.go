package domain

import "time"

// UnknownAuthor is the display name used when a feed entry carries no
// author information.
const UnknownAuthor = "unknown"

// Post is a single ingested group-feed entry. A Post is immutable once
// ingested; derived values such as a resolved phone number are stored
// separately, keyed by author id.
type Post struct {
	// ID is the platform's post id (e.g. "groupid_postid").
	ID string `json:"id"`

	// GroupID is the id of the group the post was fetched from.
	GroupID string `json:"groupId"`

	// GroupName is the group's display name, or the raw id if the name
	// could not be resolved.
	GroupName string `json:"groupName"`

	// AuthorID is the platform id of the author. Empty when the feed
	// entry carries no author.
	AuthorID string `json:"authorId"`

	// AuthorName is the author's display name, or UnknownAuthor.
	AuthorName string `json:"authorName"`

	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`

	// Images holds the full-picture URL plus any photo attachment URLs.
	Images []string `json:"images,omitempty"`

	// Comments is the first page of comments returned with the entry.
	Comments []Comment `json:"comments,omitempty"`
}

// HasImages reports whether the post carries at least one image.
func (p *Post) HasImages() bool {
	return len(p.Images) > 0
}

// Comment is a single comment attributed to its parent post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Contact is the result of a mapping-file lookup. Found is false when the
// scan reached end of file without a matching record.
type Contact struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}
