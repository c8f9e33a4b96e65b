package repository

import (
	"archive/zip"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/sources"
)

// Layout describes where browse URLs point.
type Layout struct {
	BaseURL string // repository URL, e.g. https://github.com/admin-shell-io/submodel-templates
	Branch  string
}

// BrowseURL returns the browse URL of a repository path. Every segment is
// escaped.
func (l Layout) BrowseURL(repoPath string) string {
	segments := strings.Split(strings.Trim(repoPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(l.BaseURL, "/") + "/tree/" + l.Branch + "/" + strings.Join(segments, "/")
}

// versionFolder is a folder under an area whose name segments after the
// template folder are all numeric.
type versionFolder struct {
	area     string
	repoPath string   // from the area segment on
	numeric  []string // version segments
}

// parseEntry finds the deepest version folder an archive entry lies in.
// Entries outside published/ or deprecated/, or with fewer than two numeric
// segments after the template folder, yield nothing.
//
//	submodel-templates-main/published/Digital nameplate/2/0/docs/x.md
//	-> published/Digital nameplate/2/0
func parseEntry(name string) (versionFolder, bool) {
	parts := strings.Split(strings.Trim(path.Clean("/"+name), "/"), "/")
	area := slices.IndexFunc(parts, func(p string) bool {
		return p == index.AreaPublished || p == index.AreaDeprecated
	})
	if area < 0 || area+1 >= len(parts) {
		return versionFolder{}, false
	}

	var numeric []string
	for _, p := range parts[area+2:] {
		if !isNumeric(p) {
			break
		}
		numeric = append(numeric, p)
	}
	if len(numeric) < 2 {
		return versionFolder{}, false
	}

	end := area + 2 + len(numeric)
	// a file named like a number is not a folder
	if end == len(parts) && !strings.HasSuffix(name, "/") {
		numeric = numeric[:len(numeric)-1]
		end--
		if len(numeric) < 2 {
			return versionFolder{}, false
		}
	}
	return versionFolder{
		area:     parts[area],
		repoPath: strings.Join(parts[area:end], "/"),
		numeric:  numeric,
	}, true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Walk enumerates the leaf version folders of an archive: 3/0 is dropped
// when 3/0/1 exists. Folders are derived from file paths as well as
// directory entries. Records are ordered by path.
func Walk(r *zip.Reader, layout Layout) []sources.RepositoryRecord {
	folders := make(map[string]versionFolder)
	for _, f := range r.File {
		if vf, ok := parseEntry(f.Name); ok {
			folders[vf.repoPath] = vf
		}
	}

	// a version folder with a numeric descendant is not a leaf
	inner := make(map[string]bool)
	for p, vf := range folders {
		for i := len(vf.numeric) - 1; i >= 2; i-- {
			p = path.Dir(p)
			inner[p] = true
		}
	}

	paths := make([]string, 0, len(folders))
	for p := range folders {
		if !inner[p] {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)

	records := make([]sources.RepositoryRecord, 0, len(paths))
	for _, p := range paths {
		vf := folders[p]
		records = append(records, sources.RepositoryRecord{
			FolderPath:   vf.repoPath,
			Area:         vf.area,
			VersionLabel: strings.Join(vf.numeric, "."),
			BrowseURL:    layout.BrowseURL(vf.repoPath),
		})
	}
	return records
}
