package feed

import (
	"time"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
	"github.com/AymanAAASWa/facebook-monitor/internal/graph"
)

// graphTimeLayout is the timestamp format used by Graph API payloads
// (ISO 8601 with a colonless zone offset).
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// NormalizePost maps one raw feed entry to a domain Post. It is a pure
// transform and tolerates every optional field being absent: message
// defaults to empty, author fields to the unknown-author marker, images are
// collected from the full picture plus photo-type attachments.
func NormalizePost(groupID, groupName string, e graph.FeedEntry) domain.Post {
	p := domain.Post{
		ID:         e.ID,
		GroupID:    groupID,
		GroupName:  groupName,
		AuthorName: domain.UnknownAuthor,
		Message:    e.Message,
		CreatedAt:  parseTime(e.CreatedTime),
		Images:     entryImages(e),
	}

	if e.From != nil {
		p.AuthorID = e.From.ID
		if e.From.Name != "" {
			p.AuthorName = e.From.Name
		}
	}

	if e.Comments != nil {
		p.Comments = make([]domain.Comment, 0, len(e.Comments.Data))
		for _, c := range e.Comments.Data {
			p.Comments = append(p.Comments, normalizeComment(e.ID, c))
		}
	}

	return p
}

func normalizeComment(postID string, c graph.CommentEntry) domain.Comment {
	out := domain.Comment{
		ID:         c.ID,
		PostID:     postID,
		AuthorName: domain.UnknownAuthor,
		Message:    c.Message,
		CreatedAt:  parseTime(c.CreatedTime),
	}
	if c.From != nil {
		out.AuthorID = c.From.ID
		if c.From.Name != "" {
			out.AuthorName = c.From.Name
		}
	}
	return out
}

// entryImages collects the primary full picture followed by any photo-type
// attachment image.
func entryImages(e graph.FeedEntry) []string {
	var images []string
	if e.FullPicture != "" {
		images = append(images, e.FullPicture)
	}
	if e.Attachments != nil {
		for _, att := range e.Attachments.Data {
			if att.Type == "photo" && att.Media != nil && att.Media.Image != nil && att.Media.Image.Src != "" {
				images = append(images, att.Media.Image.Src)
			}
		}
	}
	return images
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
