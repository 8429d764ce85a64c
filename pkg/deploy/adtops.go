// Package deploy implements the ADT operations behind the abapGit deploy
// workflow (package ensure, repo clone/pull, activation) together with the
// declarative configuration loader and the stepped per-repo orchestrator
// that drives them.
package deploy

import (
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
	"github.com/erpl-adt/erpl-adt/pkg/xmlcodec"
)

const (
	packagesPath = "/sap/bc/adt/packages"
	reposPath    = "/sap/bc/adt/abapgit/repos"
	cloneContentType = "application/vnd.sap.adt.abapgit.repositories.v1+xml"

	// activationPath is the ADT activation endpoint; inactiveObjectsPath is
	// its companion GET used to discover pending objects before activating
	// them. Neither endpoint's implementation source was part of the
	// retrieval pack (see DESIGN.md) — both paths follow the standard ADT
	// standard ADT REST surface.
	activationPath       = "/sap/bc/adt/activation"
	inactiveObjectsPath  = "/sap/bc/adt/activation/inactiveobjects"
)

// Discover fetches the ADT discovery document and reports which optional
// capabilities (abapGit, packages, activation) the backend exposes.
func Discover(s session.Session) (*xmlcodec.DiscoveryResult, *apperr.Error) {
	resp, err := s.Get(session.DiscoveryPath, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("Discover", session.DiscoveryPath, resp.StatusCode, resp.Body)
	}
	return xmlcodec.ParseDiscoveryResponse(resp.Body)
}

// HasAbapGitSupport reports whether a discovery result advertises the
// abapGit repository collection.
func HasAbapGitSupport(d *xmlcodec.DiscoveryResult) bool {
	return d != nil && d.HasAbapGitSupport
}

func packagePath(name types.PackageName) string {
	return packagesPath + "/" + name.String()
}

// EnsurePackage makes sure the named development package exists, creating
// it with the given description/software component when it doesn't, then
// returns its metadata.
func EnsurePackage(s session.Session, pkg types.PackageName, description, softwareComponent string) (*xmlcodec.PackageInfo, *apperr.Error) {
	path := packagePath(pkg)

	resp, err := s.Get(path, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case 200:
		// Already exists; fall through to the info fetch below.
	case 404:
		body := xmlcodec.BuildPackageCreateXml(pkg, description, softwareComponent)
		createResp, cerr := s.Post(packagesPath, []byte(body), "application/xml", nil)
		if cerr != nil {
			return nil, cerr
		}
		if createResp.StatusCode != 200 && createResp.StatusCode != 201 {
			return nil, apperr.New("EnsurePackage", apperr.KindPackageError, "failed to create package "+pkg.String()).
				WithEndpoint(packagesPath).WithHTTPStatus(createResp.StatusCode)
		}
	default:
		return nil, apperr.FromHTTPStatus("EnsurePackage", path, resp.StatusCode, resp.Body)
	}

	infoResp, err := s.Get(path, nil)
	if err != nil {
		return nil, err
	}
	if infoResp.StatusCode != 200 {
		return nil, apperr.New("EnsurePackage", apperr.KindPackageError, "failed to read package info after ensure").
			WithEndpoint(path).WithHTTPStatus(infoResp.StatusCode)
	}
	return xmlcodec.ParsePackageResponse(infoResp.Body)
}

// ListRepos fetches every abapGit repository linked on the system.
func ListRepos(s session.Session) ([]xmlcodec.RepoInfo, *apperr.Error) {
	resp, err := s.Get(reposPath, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("ListRepos", reposPath, resp.StatusCode, resp.Body)
	}
	return xmlcodec.ParseRepoListResponse(resp.Body)
}

// FindRepo returns the linked repository matching url, or nil if none is
// linked yet.
func FindRepo(s session.Session, url types.RepoUrl) (*xmlcodec.RepoInfo, *apperr.Error) {
	repos, err := ListRepos(s)
	if err != nil {
		return nil, err
	}
	for i := range repos {
		if repos[i].Url == url.String() {
			return &repos[i], nil
		}
	}
	return nil, nil
}

func pickClonedRepo(body string, url types.RepoUrl) (*xmlcodec.RepoInfo, *apperr.Error) {
	repos, err := xmlcodec.ParseRepoListResponse(body)
	if err != nil {
		return nil, err
	}
	for i := range repos {
		if repos[i].Url == url.String() {
			return &repos[i], nil
		}
	}
	if len(repos) == 1 {
		return &repos[0], nil
	}
	return nil, apperr.New("CloneRepo", apperr.KindCloneError, "cloned repo not found in response")
}

// CloneRepo links url into package on the SAP system, polling through the
// async 202+Location pattern when the backend doesn't complete the clone
// synchronously.
func CloneRepo(s session.Session, url types.RepoUrl, branch types.BranchRef, pkg types.PackageName, timeout time.Duration) (*xmlcodec.RepoInfo, *apperr.Error) {
	body := xmlcodec.BuildRepoCloneXml(url, branch, pkg)
	resp, err := s.Post(reposPath, []byte(body), cloneContentType, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case 200, 201:
		return pickClonedRepo(resp.Body, url)
	case 202:
		location, ok := resp.Headers.Get("Location")
		if !ok || location == "" {
			return nil, apperr.New("CloneRepo", apperr.KindInternal, "202 response missing Location header").WithEndpoint(reposPath)
		}
		poll, perr := s.PollUntilComplete(location, timeout)
		if perr != nil {
			return nil, perr
		}
		switch poll.Status {
		case session.PollCompleted:
			return pickClonedRepo(poll.Body, url)
		case session.PollFailed:
			return nil, apperr.New("CloneRepo", apperr.KindCloneError, "async clone operation failed").WithEndpoint(location)
		default:
			return nil, apperr.New("CloneRepo", apperr.KindTimeout, "async clone operation did not complete within timeout").WithEndpoint(location)
		}
	default:
		return nil, apperr.FromHTTPStatus("CloneRepo", reposPath, resp.StatusCode, resp.Body)
	}
}

// PullRepo pulls the latest commit for an already-linked repository,
// returning once the pull has completed (synchronously or via poll).
func PullRepo(s session.Session, key types.RepoKey, timeout time.Duration) *apperr.Error {
	path := reposPath + "/" + key.String() + "/pull"

	resp, err := s.Post(path, nil, "application/xml", nil)
	if err != nil {
		return err
	}

	switch resp.StatusCode {
	case 200:
		return nil
	case 202:
		location, ok := resp.Headers.Get("Location")
		if !ok || location == "" {
			return apperr.New("PullRepo", apperr.KindInternal, "202 response missing Location header").WithEndpoint(path)
		}
		poll, perr := s.PollUntilComplete(location, timeout)
		if perr != nil {
			return perr
		}
		switch poll.Status {
		case session.PollCompleted:
			return nil
		case session.PollRunning:
			return apperr.New("PullRepo", apperr.KindTimeout, "async pull operation did not complete within timeout").WithEndpoint(location)
		default:
			return apperr.New("PullRepo", apperr.KindPullError, "async pull operation failed").WithEndpoint(location)
		}
	default:
		return apperr.FromHTTPStatus("PullRepo", path, resp.StatusCode, resp.Body)
	}
}

// UnlinkRepo removes a repository link (not part of the deploy workflow but
// offered alongside it for the `deploy` CLI's `status`/teardown paths).
func UnlinkRepo(s session.Session, key types.RepoKey) *apperr.Error {
	path := reposPath + "/" + key.String()
	resp, err := s.Delete(path, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 && resp.StatusCode != 204 {
		return apperr.FromHTTPStatus("UnlinkRepo", path, resp.StatusCode, resp.Body)
	}
	return nil
}

// GetInactiveObjects returns every object still pending activation.
func GetInactiveObjects(s session.Session) ([]xmlcodec.InactiveObject, *apperr.Error) {
	resp, err := s.Get(inactiveObjectsPath, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, apperr.FromHTTPStatus("GetInactiveObjects", inactiveObjectsPath, resp.StatusCode, resp.Body)
	}
	return xmlcodec.ParseInactiveObjectsResponse(resp.Body)
}

// ActivateAll activates every object in objects, polling through the async
// pattern when the backend defers the run.
func ActivateAll(s session.Session, objects []xmlcodec.InactiveObject, timeout time.Duration) (*xmlcodec.ActivationResult, *apperr.Error) {
	path := activationPath + "?method=activate"
	body := xmlcodec.BuildActivationXml(objects)

	resp, err := s.Post(path, []byte(body), "application/xml", nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case 200, 201:
		return xmlcodec.ParseActivationResponse(resp.Body)
	case 202:
		location, ok := resp.Headers.Get("Location")
		if !ok || location == "" {
			return nil, apperr.New("Activate", apperr.KindInternal, "202 response missing Location header").WithEndpoint(path)
		}
		poll, perr := s.PollUntilComplete(location, timeout)
		if perr != nil {
			return nil, perr
		}
		switch poll.Status {
		case session.PollCompleted:
			return xmlcodec.ParseActivationResponse(poll.Body)
		case session.PollRunning:
			return nil, apperr.New("Activate", apperr.KindTimeout, "async activation did not complete within timeout").WithEndpoint(location)
		default:
			return nil, apperr.New("Activate", apperr.KindActivationError, "async activation failed").WithEndpoint(location)
		}
	default:
		return nil, apperr.FromHTTPStatus("Activate", path, resp.StatusCode, resp.Body)
	}
}
