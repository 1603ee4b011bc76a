// Package export renders the session's collections for collaborators:
// CSV reports and JSON string lists.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
)

const (
	feedTimeLayout    = time.RFC3339
	contactDateLayout = "2006-01-02"
	rowTypePost       = "Post"
	rowTypeComment    = "Comment"
)

var feedHeader = []string{"Type", "GroupId", "AuthorName", "Phone", "Message", "Time", "AuthorId", "PostId", "Score"}

var customerHeader = []string{"Name", "Phone", "Status", "Score", "PostsCount", "LastContact", "Notes"}

// FeedCSV writes posts and comments as CSV rows. phone resolves an author
// id to the displayed contact value (empty when unresolved); score
// computes a post's score under the active keyword set.
func FeedCSV(w io.Writer, posts []domain.Post, comments []domain.Comment, phone func(authorID string) string, score func(*domain.Post) int) error {
	if err := writeRow(w, feedHeader); err != nil {
		return err
	}

	for i := range posts {
		p := &posts[i]
		row := []string{
			rowTypePost,
			p.GroupName,
			p.AuthorName,
			phone(p.AuthorID),
			p.Message,
			p.CreatedAt.Format(feedTimeLayout),
			p.AuthorID,
			"",
			strconv.Itoa(score(p)),
		}
		if err := writeRow(w, row); err != nil {
			return err
		}
	}

	for _, c := range comments {
		row := []string{
			rowTypeComment,
			"",
			c.AuthorName,
			phone(c.AuthorID),
			c.Message,
			c.CreatedAt.Format(feedTimeLayout),
			c.AuthorID,
			c.PostID,
			"0",
		}
		if err := writeRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

// CustomersCSV writes the customer report.
func CustomersCSV(w io.Writer, customers []domain.Customer) error {
	if err := writeRow(w, customerHeader); err != nil {
		return err
	}
	for _, c := range customers {
		row := []string{
			c.Name,
			c.Phone,
			string(c.Status),
			strconv.Itoa(c.Score),
			strconv.Itoa(len(c.PostIDs)),
			c.LastContactAt.Format(contactDateLayout),
			c.Notes,
		}
		if err := writeRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

// writeRow emits one CSV line. Every field is quoted, embedded quotes
// doubled.
func writeRow(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	if _, err := fmt.Fprintln(w, strings.Join(quoted, ",")); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}
