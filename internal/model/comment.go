package model

import "time"

// Comment is a remark on a Solution. PostedBy is denormalized by the store
// on every read, so clients never need a second request for the username.
type Comment struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	SolutionID string      `json:"solution"`
	PostedBy   UserSummary `json:"postedBy"`
	CreatedAt  time.Time   `json:"createdAt"`
}
