package model

import "fmt"

// PullRef identifies one pull request on the Git host.
type PullRef struct {
	Owner string
	Repo  string
	Index int64
}

// String renders the reference as owner/repo#index. It is also the key used to
// serialize runs for the same pull request.
func (p PullRef) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Index)
}

// FullName returns owner/repo.
func (p PullRef) FullName() string {
	return p.Owner + "/" + p.Repo
}
