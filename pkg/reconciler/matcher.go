package reconciler

import (
	"fmt"
	"strings"
)

// MatchMethod names the join rule that associated a registry group with a
// repository folder.
type MatchMethod string

// Join rules in precedence order.
const (
	MatchByURL     MatchMethod = "repository_url"
	MatchByName    MatchMethod = "name"
	MatchByCompact MatchMethod = "compact_name"
)

// join associates registry groups with repository groups. Each side of a
// pair participates in at most one pair.
type join struct {
	byRegistry   map[*registryGroup]*repositoryGroup
	byRepository map[*repositoryGroup]*registryGroup
	methods      map[*registryGroup]MatchMethod
	warnings     []Warning
}

func (j *join) pair(reg *registryGroup, repo *repositoryGroup, method MatchMethod) {
	j.byRegistry[reg] = repo
	j.byRepository[repo] = reg
	j.methods[reg] = method
}

func (j *join) claimed(repo *repositoryGroup) bool {
	_, ok := j.byRepository[repo]
	return ok
}

func (j *join) matched(reg *registryGroup) bool {
	_, ok := j.byRegistry[reg]
	return ok
}

// match runs the join pass. Every rule completes over all groups before the
// next rule starts, so a weaker rule never takes a folder a stronger rule
// would have assigned.
func match(c *collector) *join {
	j := &join{
		byRegistry:   make(map[*registryGroup]*repositoryGroup),
		byRepository: make(map[*repositoryGroup]*registryGroup),
		methods:      make(map[*registryGroup]MatchMethod),
	}
	j.matchByURL(c)
	j.matchByName(c)
	j.matchByCompactKey(c)
	return j
}

// matchByURL follows the repository link the registry advertises. A link
// matches a folder when it points at the folder or below it.
func (j *join) matchByURL(c *collector) {
	for _, reg := range c.registry {
		links := reg.repositoryURLs()
		if len(links) == 0 {
			continue
		}
		for _, repo := range c.repository {
			if repo.baseURL == "" || !linksInto(links, repo.baseURL) {
				continue
			}
			if owner, taken := j.byRepository[repo]; taken {
				j.warnConflict(reg, repo, owner)
				continue
			}
			j.pair(reg, repo, MatchByURL)
			break
		}
	}
}

func linksInto(links []string, base string) bool {
	for _, l := range links {
		if l == base || strings.HasPrefix(l, base+"/") {
			return true
		}
	}
	return false
}

// matchByName compares every name known to a registry group with the
// normalized folder names.
func (j *join) matchByName(c *collector) {
	folders := make(map[string]*repositoryGroup, len(c.repository))
	for _, repo := range c.repository {
		folders[repo.key] = repo
	}
	for _, reg := range c.registry {
		if j.matched(reg) {
			continue
		}
		for _, name := range reg.names {
			repo, ok := folders[normalizeName(name)]
			if !ok {
				continue
			}
			if owner, taken := j.byRepository[repo]; taken {
				j.warnConflict(reg, repo, owner)
				continue
			}
			j.pair(reg, repo, MatchByName)
			break
		}
	}
}

// matchByCompactKey joins on names with separators removed, but only where
// the compact key identifies exactly one unmatched group on each side.
func (j *join) matchByCompactKey(c *collector) {
	repoByKey := make(map[string][]*repositoryGroup)
	for _, repo := range c.repository {
		if j.claimed(repo) {
			continue
		}
		if k := compactKey(repo.folder); k != "" {
			repoByKey[k] = append(repoByKey[k], repo)
		}
	}
	regByKey := make(map[string][]*registryGroup)
	for _, reg := range c.registry {
		if j.matched(reg) {
			continue
		}
		seen := map[string]bool{}
		for _, name := range reg.names {
			if k := compactKey(name); k != "" && !seen[k] {
				seen[k] = true
				regByKey[k] = append(regByKey[k], reg)
			}
		}
	}
	for _, reg := range c.registry {
		if j.matched(reg) {
			continue
		}
		for _, name := range reg.names {
			k := compactKey(name)
			if len(regByKey[k]) != 1 || len(repoByKey[k]) != 1 {
				continue
			}
			repo := repoByKey[k][0]
			if j.claimed(repo) {
				continue
			}
			j.pair(reg, repo, MatchByCompact)
			break
		}
	}
}

func (j *join) warnConflict(reg *registryGroup, repo *repositoryGroup, owner *registryGroup) {
	j.warnings = append(j.warnings, Warning{
		Code: WarningFolderClaimed,
		Message: fmt.Sprintf("registry template %q also matches folder %q, already joined to %q",
			reg.name(), repo.folder, owner.name()),
	})
}
