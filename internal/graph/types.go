package graph

import "fmt"

// FeedResponse is the raw payload of a group feed page.
type FeedResponse struct {
	Data   []FeedEntry `json:"data"`
	Paging *Paging     `json:"paging,omitempty"`
	Error  *APIError   `json:"error,omitempty"`
}

// FeedEntry is a single raw feed entry. Every field except ID and
// created_time may be absent.
type FeedEntry struct {
	ID          string       `json:"id"`
	Message     string       `json:"message,omitempty"`
	CreatedTime string       `json:"created_time"`
	FullPicture string       `json:"full_picture,omitempty"`
	From        *Actor       `json:"from,omitempty"`
	Attachments *Attachments `json:"attachments,omitempty"`
	Comments    *CommentPage `json:"comments,omitempty"`
}

// Actor identifies a post or comment author.
type Actor struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Picture *Picture `json:"picture,omitempty"`
}

// Picture is the nested profile picture reference.
type Picture struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Attachments wraps the attachment list of a feed entry.
type Attachments struct {
	Data []Attachment `json:"data"`
}

// Attachment is a single media attachment.
type Attachment struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Media *Media `json:"media,omitempty"`
}

// Media holds the image reference of a photo attachment.
type Media struct {
	Image *Image `json:"image,omitempty"`
}

// Image is an attachment image source.
type Image struct {
	Src string `json:"src"`
}

// CommentPage is the first page of comments returned inline with a feed
// entry.
type CommentPage struct {
	Data []CommentEntry `json:"data"`
}

// CommentEntry is a single raw comment.
type CommentEntry struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	From        *Actor `json:"from,omitempty"`
}

// Paging carries the next-page link of a feed response.
type Paging struct {
	Next string `json:"next,omitempty"`
}

// NameResponse is the payload of a group name request.
type NameResponse struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Error *APIError `json:"error,omitempty"`
}

// Profile is the payload of a token validation request against /me.
type Profile struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Error *APIError `json:"error,omitempty"`
}

func (r *FeedResponse) apiError() *APIError { return r.Error }
func (r *NameResponse) apiError() *APIError { return r.Error }
func (r *Profile) apiError() *APIError { return r.Error }

// APIError is the structured error object embedded in Graph API payloads.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error (code %d, type %s): %s", e.Code, e.Type, e.Message)
}
