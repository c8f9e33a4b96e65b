package reconciler

import (
	"cmp"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/agentstation/smtindex/pkg/identifier"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/sources"
)

var whitespace = regexp.MustCompile(`\s+`)

// normalizeName is the join key for names: trimmed, lowercased and
// whitespace-collapsed.
func normalizeName(s string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(s), " "))
}

// compactKey is the fallback join key: the slug with separators removed.
func compactKey(s string) string {
	return strings.ReplaceAll(identifier.Slugify(s), "-", "")
}

// registryGroup is every registry record describing one template.
type registryGroup struct {
	key     string // "registry:{number}" or "registry-name:{normalized name}"
	number  string
	names   []string // distinct display names in input order
	records []sources.RegistryRecord
}

func (g *registryGroup) name() string {
	if len(g.names) == 0 {
		return ""
	}
	return g.names[0]
}

// first returns the first non-empty value of field across the group's
// records, in input order.
func (g *registryGroup) first(field func(sources.RegistryRecord) string) string {
	for _, r := range g.records {
		if v := strings.TrimSpace(field(r)); v != "" {
			return v
		}
	}
	return ""
}

func (g *registryGroup) versions() []sources.RegistryVersion {
	var out []sources.RegistryVersion
	for _, r := range g.records {
		out = append(out, r.Versions...)
	}
	return out
}

// repositoryURLs returns the normalized repository links the registry
// advertises for this group.
func (g *registryGroup) repositoryURLs() []string {
	var out []string
	for _, r := range g.records {
		if u := normalizeRepositoryURL(r.RepositoryURL); u != "" && !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

// repositoryGroup is every version folder of one repository template folder.
type repositoryGroup struct {
	key     string // normalized folder name
	folder  string // display folder name
	baseURL string // normalized browse URL of the template folder
	records []sources.RepositoryRecord
}

// collector performs the grouping pass over both record sets.
type collector struct {
	registry   []*registryGroup
	repository []*repositoryGroup
	skipped    []Warning
}

func collect(in Input) *collector {
	c := &collector{}
	c.collectRegistry(in.Registry)
	c.collectRepository(in.Repository)
	return c
}

func (c *collector) collectRegistry(records []sources.RegistryRecord) {
	byKey := make(map[string]*registryGroup)
	for i, r := range records {
		number := strings.TrimSpace(r.RegistryNumber)
		name := strings.TrimSpace(r.Name)
		var key string
		switch {
		case number != "":
			key = "registry:" + number
		case normalizeName(name) != "":
			key = "registry-name:" + normalizeName(name)
		default:
			c.skipped = append(c.skipped, Warning{
				Code:    WarningSkippedRecord,
				Message: fmt.Sprintf("registry record %d has neither number nor name", i),
			})
			continue
		}

		g, ok := byKey[key]
		if !ok {
			g = &registryGroup{key: key, number: number}
			byKey[key] = g
			c.registry = append(c.registry, g)
		}
		if name != "" && !slices.ContainsFunc(g.names, func(n string) bool { return normalizeName(n) == normalizeName(name) }) {
			g.names = append(g.names, name)
		}
		g.records = append(g.records, r)
	}
	slices.SortFunc(c.registry, func(a, b *registryGroup) int { return cmp.Compare(a.key, b.key) })
}

func (c *collector) collectRepository(records []sources.RepositoryRecord) {
	byKey := make(map[string]*repositoryGroup)
	for i, r := range records {
		folder, _ := splitFolderPath(r.FolderPath)
		key := normalizeName(folder)
		if key == "" {
			c.skipped = append(c.skipped, Warning{
				Code:    WarningSkippedRecord,
				Message: fmt.Sprintf("repository record %d has no template folder in %q", i, r.FolderPath),
			})
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &repositoryGroup{key: key}
			byKey[key] = g
			c.repository = append(c.repository, g)
		}
		g.records = append(g.records, r)
	}
	for _, g := range c.repository {
		slices.SortFunc(g.records, compareRepositoryRecords)
		g.folder, _ = splitFolderPath(g.records[0].FolderPath)
		g.baseURL = normalizeRepositoryURL(templateFolderURL(g.records[0].BrowseURL))
	}
	slices.SortFunc(c.repository, func(a, b *repositoryGroup) int { return cmp.Compare(a.key, b.key) })
}

// compareRepositoryRecords orders published folders first, then by path.
func compareRepositoryRecords(a, b sources.RepositoryRecord) int {
	if c := cmp.Compare(areaRank(a.Area), areaRank(b.Area)); c != 0 {
		return c
	}
	return cmp.Compare(cleanPath(a.FolderPath), cleanPath(b.FolderPath))
}

func areaRank(area string) int {
	switch strings.ToLower(strings.TrimSpace(area)) {
	case index.AreaPublished:
		return 0
	case index.AreaDeprecated:
		return 1
	default:
		return 2
	}
}

func cleanPath(p string) string {
	return strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
}

// splitFolderPath returns the template folder of a repository path and the
// numeric version segments that follow it. A leading area segment is
// skipped.
//
//	"published/Digital Nameplate/2/0" -> "Digital Nameplate", ["2", "0"]
func splitFolderPath(p string) (string, []string) {
	parts := strings.Split(cleanPath(p), "/")
	start := 0
	for i, part := range parts {
		if isArea(part) {
			start = i + 1
			break
		}
	}
	if start >= len(parts) {
		return "", nil
	}
	folder := strings.TrimSpace(parts[start])
	var numeric []string
	for _, part := range parts[start+1:] {
		if !isNumeric(part) {
			break
		}
		numeric = append(numeric, part)
	}
	return folder, numeric
}

func isArea(s string) bool {
	s = strings.ToLower(s)
	return s == index.AreaPublished || s == index.AreaDeprecated
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

// templateFolderURL cuts a version folder browse URL back to its template
// folder: everything up to and including the segment after the area.
func templateFolderURL(browse string) string {
	u, err := url.Parse(strings.TrimSpace(browse))
	if err != nil || u.Host == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, part := range parts {
		if isArea(part) && i+1 < len(parts) {
			u.Path = "/" + strings.Join(parts[:i+2], "/")
			u.RawPath = ""
			u.RawQuery = ""
			u.Fragment = ""
			return u.String()
		}
	}
	return ""
}

var branchSuffix = regexp.MustCompile(`/tree/(?:main|master)$`)

// normalizeRepositoryURL makes repository links comparable: unescaped,
// lowercased, without scheme, trailing slash or bare branch suffix.
func normalizeRepositoryURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	raw = strings.ToLower(raw)
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "www.")
	raw = strings.TrimRight(raw, "/")
	raw = branchSuffix.ReplaceAllString(raw, "")
	return strings.TrimRight(raw, "/")
}
