package model

import "time"

// Problem status values.
const (
	StatusOpen   = "open"
	StatusSolved = "solved"
)

// ValidStatus reports whether s is one of the known problem statuses.
func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusSolved
}

// Problem is a reported issue. Only the user in PostedBy may change or
// delete it.
//
// Image is either empty or a reference issued by the asset store.
type Problem struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	Image       string      `json:"image,omitempty"`
	Status      string      `json:"status"`
	PostedBy    UserSummary `json:"postedBy"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ProblemPatch carries a partial update.
//
// PRESENCE SEMANTICS WITH POINTER FIELDS:
// A plain string cannot tell "the client left title out" apart from "the
// client sent an empty title"; both decode to "". A *string can:
//
//	{}                 → Title == nil          leave the stored title alone
//	{"title": ""}      → Title != nil, == ""   store the empty string
//	{"title": "Gap"}   → Title != nil, == "Gap"
//
// encoding/json leaves a pointer nil when the key is absent and allocates
// it when the key is present, so decoding straight into ProblemPatch gives
// the right answer. The multipart reader builds the same shape by hand
// (see handler.formValue).
type ProblemPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Status      *string `json:"status"`
}

// Apply overwrites the fields of p that are present in the patch.
func (patch ProblemPatch) Apply(p *Problem) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
}
