package xmlcodec

import (
	"fmt"
	"strings"

	"github.com/erpl-adt/erpl-adt/pkg/types"
)

const (
	nsAdtCore      = "http://www.sap.com/adt/core"
	nsPackages     = "http://www.sap.com/adt/packages"
	nsAbapGitRepo  = "http://www.sap.com/adt/abapgit/repositories"
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`
)

// escapeAttr escapes a string for use inside a double-quoted XML attribute.
func escapeAttr(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		`"`, "&quot;",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}

// escapeText escapes a string for use as XML element character data.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return r.Replace(s)
}

// EscapeAttr escapes a string for use inside a double-quoted XML attribute,
// for request builders outside this package (test run configuration, BW
// activation) that assemble the same wire XML shapes.
func EscapeAttr(s string) string { return escapeAttr(s) }

// BuildPackageCreateXml builds the request body for creating a local
// development package (superPackage $TMP, packageType development).
func BuildPackageCreateXml(packageName types.PackageName, description, softwareComponent string) string {
	if softwareComponent == "" {
		softwareComponent = "LOCAL"
	}

	var b strings.Builder
	b.WriteString(xmlDeclaration)
	fmt.Fprintf(&b, `<pak:package xmlns:pak=%q xmlns:adtcore=%q adtcore:description=%q adtcore:name=%q adtcore:type="DEVC/K" adtcore:version="active" adtcore:responsible="DEVELOPER">`,
		nsPackages, nsAdtCore, escapeAttr(description), escapeAttr(packageName.String()))
	b.WriteString(`<adtcore:packageRef adtcore:name="$TMP"/>`)
	b.WriteString(`<pak:attributes pak:packageType="development"/>`)
	b.WriteString(`<pak:superPackage adtcore:name="$TMP"/>`)
	b.WriteString(`<pak:applicationComponent/>`)
	fmt.Fprintf(&b, `<pak:transport><pak:softwareComponent pak:name=%q/><pak:transportLayer pak:name=""/></pak:transport>`, escapeAttr(softwareComponent))
	b.WriteString(`<pak:translation/>`)
	b.WriteString(`<pak:useAccesses/>`)
	b.WriteString(`<pak:packageInterfaces/>`)
	b.WriteString(`<pak:subPackages/>`)
	b.WriteString(`</pak:package>`)
	return b.String()
}

// BuildRepoCloneXml builds the request body for cloning an abapGit
// repository into an existing package.
func BuildRepoCloneXml(repoUrl types.RepoUrl, branch types.BranchRef, packageName types.PackageName) string {
	var b strings.Builder
	b.WriteString(xmlDeclaration)
	fmt.Fprintf(&b, `<abapgitrepo:repository xmlns:abapgitrepo=%q>`, nsAbapGitRepo)
	fmt.Fprintf(&b, `<abapgitrepo:package>%s</abapgitrepo:package>`, escapeText(packageName.String()))
	fmt.Fprintf(&b, `<abapgitrepo:url>%s</abapgitrepo:url>`, escapeText(repoUrl.String()))
	fmt.Fprintf(&b, `<abapgitrepo:branchName>%s</abapgitrepo:branchName>`, escapeText(branch.String()))
	b.WriteString(`<abapgitrepo:transportRequest/>`)
	b.WriteString(`<abapgitrepo:remoteUser/>`)
	b.WriteString(`<abapgitrepo:remotePassword/>`)
	b.WriteString(`</abapgitrepo:repository>`)
	return b.String()
}

// BuildActivationXml builds the request body listing the objects to
// activate.
func BuildActivationXml(objects []InactiveObject) string {
	var b strings.Builder
	b.WriteString(xmlDeclaration)
	fmt.Fprintf(&b, `<adtcore:objectReferences xmlns:adtcore=%q>`, nsAdtCore)
	for _, obj := range objects {
		fmt.Fprintf(&b, `<adtcore:objectReference adtcore:uri=%q adtcore:type=%q adtcore:name=%q/>`,
			escapeAttr(obj.Uri), escapeAttr(obj.Type), escapeAttr(obj.Name))
	}
	b.WriteString(`</adtcore:objectReferences>`)
	return b.String()
}
