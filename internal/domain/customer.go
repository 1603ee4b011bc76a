package domain

import "time"

// CustomerStatus tracks where a prospect sits in the sales funnel.
type CustomerStatus string

const (
	StatusInterested    CustomerStatus = "interested"
	StatusContacted     CustomerStatus = "contacted"
	StatusConverted     CustomerStatus = "converted"
	StatusNotInterested CustomerStatus = "not_interested"
)

// Customer aggregates one distinct author across all of their posts. A
// customer is upserted, never deleted, and its score only grows as more
// scored posts are attributed to the same author.
type Customer struct {
	// ID is the author id the customer was created from.
	ID string `json:"id"`

	Name  string `json:"name"`
	Phone string `json:"phone"`

	Status CustomerStatus `json:"status"`

	// PostIDs lists the posts attributed to this customer, in the order
	// they were attached.
	PostIDs []string `json:"postIds"`

	// Score is the accumulated post score.
	Score int `json:"score"`

	LastContactAt time.Time `json:"lastContactAt"`
	Notes         string    `json:"notes,omitempty"`
}
