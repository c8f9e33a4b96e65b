package reconciler

import (
	"slices"
	"strings"

	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/semver"
	"github.com/agentstation/smtindex/pkg/sources"
)

// versionEntry accumulates everything both sources say about one version.
type versionEntry struct {
	key          semver.Key
	pdf          string // first version-specific registry PDF
	fromRegistry bool
	repository   []index.RepositoryEntry
}

// Versions merges the registry's version list and the repository's version
// folders of one template into a list sorted newest first, with exactly one
// entry flagged latest when the list is non-empty.
//
// Labels resolving to the same key merge into one Version. The PDF link is
// the version-specific registry link, falling back to templatePDF for
// versions the registry lists. The GitHub link is the preferred repository
// folder: published before deprecated, then by path. No label is dropped.
func Versions(registry []sources.RegistryVersion, templatePDF string, repository []sources.RepositoryRecord) []index.Version {
	entries := make(map[string]*versionEntry)
	var order []*versionEntry
	lookup := func(k semver.Key) *versionEntry {
		id := k.Identity()
		e, ok := entries[id]
		if !ok {
			e = &versionEntry{key: k}
			entries[id] = e
			order = append(order, e)
		}
		return e
	}

	for _, rv := range registry {
		if strings.TrimSpace(rv.Label) == "" {
			continue
		}
		e := lookup(semver.Parse(rv.Label))
		e.fromRegistry = true
		if e.pdf == "" {
			e.pdf = strings.TrimSpace(rv.PDFURL)
		}
	}

	for _, rr := range repository {
		k, ok := repositoryKey(rr)
		if !ok {
			continue
		}
		e := lookup(k)
		entry := index.RepositoryEntry{
			Area:      strings.ToLower(strings.TrimSpace(rr.Area)),
			RepoPath:  cleanPath(rr.FolderPath),
			GitHubURL: strings.TrimSpace(rr.BrowseURL),
		}
		if !slices.ContainsFunc(e.repository, func(x index.RepositoryEntry) bool { return x.RepoPath == entry.RepoPath }) {
			e.repository = append(e.repository, entry)
		}
	}

	// descending
	slices.SortFunc(order, func(a, b *versionEntry) int {
		return semver.Compare(b.key, a.key)
	})

	templatePDF = strings.TrimSpace(templatePDF)
	versions := make([]index.Version, 0, len(order))
	for _, e := range order {
		slices.SortFunc(e.repository, compareEntries)
		v := index.Version{
			Version:    e.key.String(),
			Repository: e.repository,
		}
		if v.Repository == nil {
			v.Repository = []index.RepositoryEntry{}
		}
		switch {
		case e.pdf != "":
			v.Links.PDF = e.pdf
		case e.fromRegistry:
			v.Links.PDF = templatePDF
		}
		if len(e.repository) > 0 {
			v.Links.GitHub = e.repository[0].GitHubURL
		}
		versions = append(versions, v)
	}
	if len(versions) > 0 {
		versions[0].IsLatest = true
	}
	return versions
}

// repositoryKey resolves the version of a repository folder: its label when
// present, otherwise the numeric segments of its path.
func repositoryKey(rr sources.RepositoryRecord) (semver.Key, bool) {
	if label := strings.TrimSpace(rr.VersionLabel); label != "" {
		return semver.Parse(label), true
	}
	_, numeric := splitFolderPath(rr.FolderPath)
	if k, ok := semver.FromPathParts(numeric); ok {
		return k, true
	}
	if len(numeric) > 0 {
		return semver.Parse(strings.Join(numeric, ".")), true
	}
	return semver.Key{}, false
}

func compareEntries(a, b index.RepositoryEntry) int {
	if c := areaRank(a.Area) - areaRank(b.Area); c != 0 {
		return c
	}
	return strings.Compare(a.RepoPath, b.RepoPath)
}
