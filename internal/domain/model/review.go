package model

// Review is one entry of the host's review listing for a pull request.
type Review struct {
	ReviewerLogin string
	CommitID      *string      // nil when the host omitted commit_id.
	State         *ReviewState // nil when the host omitted state.
}

// Status returns the reviewer status carried by the review. ok is false when
// either commit_id or state is missing.
func (r Review) Status() (status ReviewerStatus, ok bool) {
	if r.CommitID == nil || r.State == nil {
		return ReviewerStatus{}, false
	}
	return ReviewerStatus{CommitID: *r.CommitID, State: *r.State}, true
}

// ReviewerStatus is the bot's most recent review on a pull request.
type ReviewerStatus struct {
	CommitID string
	State    ReviewState
}

// ParsedReview is the structured review produced by the model.
type ParsedReview struct {
	OverallExplanation string
	Findings           []Finding
}

// Finding is a single comment anchored to a file and line.
type Finding struct {
	Body     string
	Location CodeLocation
}

// CodeLocation anchors a finding in the new version of a file.
type CodeLocation struct {
	AbsoluteFilePath string
	Line             uint32
}
