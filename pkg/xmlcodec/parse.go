package xmlcodec

import (
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/apperr"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

func xmlError(operation, message string) *apperr.Error {
	return apperr.New(operation, apperr.KindInternal, message)
}

// ParseDiscoveryResponse parses an ADT discovery document (app:workspace /
// app:collection Atom entries) and derives the capability flags the session
// uses to decide whether abapGit, package, and activation endpoints exist.
func ParseDiscoveryResponse(xmlText string) (*DiscoveryResult, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, xmlError("ParseDiscoveryResponse", err.Error())
	}

	result := &DiscoveryResult{}

	for _, ws := range root.children("workspace") {
		for _, coll := range ws.children("collection") {
			svc := ServiceInfo{
				Href:  coll.attr("href"),
				Title: coll.childText("title"),
			}
			if tmplLinks := coll.child("templateLinks"); tmplLinks != nil {
				if tmplLink := tmplLinks.child("templateLink"); tmplLink != nil {
					svc.Type = tmplLink.attr("type")
				}
			}

			if strings.Contains(svc.Href, "/abapgit/repos") {
				result.HasAbapGitSupport = true
			}
			if strings.Contains(svc.Href, "/packages") {
				result.HasPackagesSupport = true
			}
			if svc.Href == "/sap/bc/adt/activation" {
				result.HasActivationSupport = true
			}

			result.Services = append(result.Services, svc)
		}
	}

	return result, nil
}

// ParsePackageResponse parses a package metadata response into PackageInfo.
func ParsePackageResponse(xmlText string) (*PackageInfo, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, xmlError("ParsePackageResponse", err.Error())
	}

	info := &PackageInfo{
		Name:        root.attr("name"),
		Description: root.attr("description"),
		Uri:         root.attr("uri"),
	}
	if super := root.child("superPackage"); super != nil {
		info.SuperPackage = super.attr("name")
	}
	if transport := root.child("transport"); transport != nil {
		if swComp := transport.child("softwareComponent"); swComp != nil {
			info.SoftwareComponent = swComp.attr("name")
		}
	}
	return info, nil
}

func parseSingleRepoElement(repoElem *node) RepoInfo {
	info := RepoInfo{
		Key:     repoElem.childText("key"),
		Package: repoElem.childText("package"),
		Url:     repoElem.childText("url"),
		Branch:  repoElem.childText("branchName"),
	}
	info.Status = parseRepoStatusCode(repoElem.childText("status"))
	info.StatusText = repoElem.childText("statusText")
	return info
}

// ParseRepoListResponse parses the abapGit repository list feed.
func ParseRepoListResponse(xmlText string) ([]RepoInfo, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, xmlError("ParseRepoListResponse", err.Error())
	}

	var repos []RepoInfo
	for _, repoElem := range root.children("repository") {
		repos = append(repos, parseSingleRepoElement(repoElem))
	}
	return repos, nil
}

// ParseRepoStatusResponse parses a single-repository status response; the
// root element itself is the repository node.
func ParseRepoStatusResponse(xmlText string) (*RepoStatus, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, xmlError("ParseRepoStatusResponse", err.Error())
	}

	status := &RepoStatus{
		Key:     root.childText("key"),
		Message: root.childText("statusText"),
	}
	status.Status = parseRepoStatusCode(root.childText("status"))
	return status, nil
}

// ParseActivationResponse parses a chkl:messages activation-run response.
// Every "E" (error) or "A" (abort) message counts as a failure; every other
// message counts as activated. Any remaining ioc:entry under
// ioc:inactiveObjects indicates the object is still inactive and is also
// counted as a failure.
func ParseActivationResponse(xmlText string) (*ActivationResult, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, xmlError("ParseActivationResponse", err.Error())
	}

	result := &ActivationResult{}

	messages := root
	if root.Name != "messages" {
		messages = root.child("messages")
	}
	if messages != nil {
		for _, msg := range messages.children("msg") {
			msgType := msg.attr("type")

			if shortText := msg.child("shortText"); shortText != nil {
				if txt := shortText.childText("txt"); txt != "" {
					result.ErrorMessages = append(result.ErrorMessages, txt)
				}
			}

			result.Total++
			if msgType == "E" || msgType == "A" {
				result.Failed++
			} else {
				result.Activated++
			}
		}
	}

	if inactive := root.child("inactiveObjects"); inactive != nil {
		for range inactive.children("entry") {
			result.Failed++
			result.Total++
		}
	}

	return result, nil
}

// ParseInactiveObjectsResponse parses the list of objects still pending
// activation.
func ParseInactiveObjectsResponse(xmlText string) ([]InactiveObject, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, xmlError("ParseInactiveObjectsResponse", err.Error())
	}

	var objects []InactiveObject
	for _, entry := range root.children("entry") {
		obj := entry.child("object")
		if obj == nil {
			continue
		}
		ref := obj.child("ref")
		if ref == nil {
			continue
		}
		objects = append(objects, InactiveObject{
			Type: ref.attr("type"),
			Name: ref.attr("name"),
			Uri:  ref.attr("uri"),
		})
	}
	return objects, nil
}

// ParsePollResponse parses an async operation's poll-status fragment. The
// adtcore:status attribute drives the coarse state; on Failed, the
// adtcore:progress/adtcore:text attribute is appended to the description
// for additional detail.
func ParsePollResponse(xmlText string) (*PollStatusInfo, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, xmlError("ParsePollResponse", err.Error())
	}

	info := &PollStatusInfo{}
	switch root.attr("status") {
	case "completed":
		info.State = PollCompleted
	case "failed":
		info.State = PollFailed
	default:
		info.State = PollRunning
	}

	info.Message = root.childText("description")

	if info.State == PollFailed {
		if progress := root.child("progress"); progress != nil {
			if text := progress.attr("text"); text != "" {
				if info.Message != "" {
					info.Message += ": "
				}
				info.Message += text
			}
		}
	}

	return info, nil
}

// ParseLockResponse parses an ADT lock response: a synthetic root wrapping
// an anonymous asx:values element, itself wrapping a DATA element carrying
// LOCK_HANDLE and the transport request fields. operation/endpoint are used
// only to label the returned error.
func ParseLockResponse(xmlText, operation, endpoint string) (*LockResult, *apperr.Error) {
	root, err := parseDocument(xmlText)
	if err != nil {
		return nil, apperr.New(operation, apperr.KindLockConflict, "failed to parse lock response XML: "+err.Error()).WithEndpoint(endpoint)
	}

	values := root.firstChild()
	if values == nil {
		return nil, apperr.New(operation, apperr.KindLockConflict, "missing values element in lock response").WithEndpoint(endpoint)
	}

	data := values.child("DATA")
	if data == nil {
		return nil, apperr.New(operation, apperr.KindLockConflict, "missing DATA element in lock response").WithEndpoint(endpoint)
	}

	handleStr := data.childText("LOCK_HANDLE")
	if handleStr == "" {
		return nil, apperr.New(operation, apperr.KindLockConflict, "empty LOCK_HANDLE in lock response").WithEndpoint(endpoint)
	}

	handle, verr := types.NewLockHandle(handleStr)
	if verr != nil {
		return nil, apperr.New(operation, apperr.KindLockConflict, "invalid lock handle: "+verr.Error()).WithEndpoint(endpoint)
	}

	return &LockResult{
		Handle:   handle,
		CorrNr:   data.childText("CORRNR"),
		CorrUser: data.childText("CORRUSER"),
		CorrText: data.childText("CORRTEXT"),
	}, nil
}
