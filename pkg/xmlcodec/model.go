package xmlcodec

import "github.com/erpl-adt/erpl-adt/pkg/types"

// RepoStatusEnum mirrors abapGit's single-letter repository status code.
type RepoStatusEnum int

const (
	RepoInactive RepoStatusEnum = iota
	RepoActive
	RepoError
)

func (s RepoStatusEnum) String() string {
	switch s {
	case RepoActive:
		return "active"
	case RepoError:
		return "error"
	default:
		return "inactive"
	}
}

// parseRepoStatusCode maps abapGit's single-letter status code to
// RepoStatusEnum. "A" is Active, "E" is Error; "I", "C" (Cloned), and any
// unrecognized code default to Inactive.
func parseRepoStatusCode(code string) RepoStatusEnum {
	switch code {
	case "A":
		return RepoActive
	case "E":
		return RepoError
	default:
		return RepoInactive
	}
}

// ServiceInfo is one ADT discovery collection entry.
type ServiceInfo struct {
	Href  string
	Title string
	Type  string
}

// DiscoveryResult is the parsed ADT discovery document.
type DiscoveryResult struct {
	Services             []ServiceInfo
	HasAbapGitSupport    bool
	HasPackagesSupport   bool
	HasActivationSupport bool
}

// PackageInfo is the parsed package metadata response.
type PackageInfo struct {
	Name              string
	Description       string
	Uri               string
	SuperPackage      string
	SoftwareComponent string
}

// RepoInfo is one abapGit repository list entry.
type RepoInfo struct {
	Key        string
	Package    string
	Url        string
	Branch     string
	Status     RepoStatusEnum
	StatusText string
}

// RepoStatus is the parsed single-repository status response.
type RepoStatus struct {
	Key     string
	Status  RepoStatusEnum
	Message string
}

// ActivationResult is the parsed activation-run response.
type ActivationResult struct {
	Total         int
	Activated     int
	Failed        int
	ErrorMessages []string
}

// InactiveObject identifies one object still pending activation.
type InactiveObject struct {
	Type string
	Name string
	Uri  string
}

// XmlPollState is the coarse status embedded in a poll-status fragment.
type XmlPollState int

const (
	PollRunning XmlPollState = iota
	PollCompleted
	PollFailed
)

// PollStatusInfo is the parsed poll-status fragment returned while an async
// operation (clone, pull, activation) is still in progress.
type PollStatusInfo struct {
	State   XmlPollState
	Message string
}

// LockResult is the parsed lock response: the handle needed to unlock and
// edit the object, plus any transport request it was assigned to.
type LockResult struct {
	Handle    types.LockHandle
	CorrNr    string
	CorrUser  string
	CorrText  string
}
