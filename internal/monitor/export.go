package monitor

import (
	"context"
	"fmt"
	"io"

	"github.com/AymanAAASWa/facebook-monitor/internal/export"
)

// ExportFeedCSV writes the post/comment report for the session. Resolved
// phones are attached from the contact store; unresolved authors export an
// empty phone field.
func (s *Service) ExportFeedCSV(ctx context.Context, w io.Writer) error {
	posts, err := s.deps.Posts.Posts(ctx)
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}
	comments, err := s.deps.Posts.Comments(ctx)
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}

	phone := func(authorID string) string {
		if authorID == "" {
			return ""
		}
		c, ok, err := s.deps.Contacts.Contact(ctx, authorID)
		if err != nil || !ok || !c.Found {
			return ""
		}
		return c.Value
	}

	return export.FeedCSV(w, posts, comments, phone, s.Score)
}

// ExportCustomersCSV writes the customer report ranked by score.
func (s *Service) ExportCustomersCSV(ctx context.Context, w io.Writer) error {
	customers, err := s.deps.Customers.Customers(ctx)
	if err != nil {
		return fmt.Errorf("load customers: %w", err)
	}
	return export.CustomersCSV(w, customers)
}
