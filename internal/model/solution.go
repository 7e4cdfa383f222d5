package model

import "time"

// Solution is a proposed fix for a Problem. Upvotes holds each upvoting
// user id at most once.
type Solution struct {
	ID          string      `json:"id"`
	Description string      `json:"description"`
	ProblemID   string      `json:"problem"`
	PostedBy    UserSummary `json:"postedBy"`
	Upvotes     []string    `json:"upvotes"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// UpvoteResult is the post-toggle state of a solution's upvotes.
type UpvoteResult struct {
	Upvotes    int  `json:"upvotes"`
	HasUpvoted bool `json:"hasUpvoted"`
}
