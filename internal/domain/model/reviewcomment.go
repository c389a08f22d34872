package model

// ReviewSubmission is the payload posted to the host to create a review.
type ReviewSubmission struct {
	Body     string
	CommitID string
	Event    ReviewEvent
	Comments []InlineComment
}

// InlineComment is a review comment on a diff line.
type InlineComment struct {
	Path        string
	Body        string
	NewPosition uint32 // Line in the new file.
	OldPosition uint32 // Always 0: comments target the new side only.
}
