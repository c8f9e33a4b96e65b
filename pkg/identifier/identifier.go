// Package identifier derives the canonical template ids used as the primary
// key of the index.
//
// Ids are pure functions of a template's source keys:
//
//	idta-{number}-{slug(name)}   registry-listed with a registry number
//	ext-{slug(name)}             registry-listed without a number
//	gh-{slug(folder)}            repository only
//
// Assign resolves the rare case where distinct templates derive the same id.
package identifier

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/smtindex/pkg/errors"
)

// Id prefixes.
const (
	RegistryPrefix   = "idta"
	ExternalPrefix   = "ext"
	RepositoryPrefix = "gh"
)

const fallbackSlug = "unnamed"

// letters that do not decompose into an ASCII base under NFKD
var transliterations = strings.NewReplacer(
	"ß", "ss", "ẞ", "ss",
	"æ", "ae", "Æ", "ae",
	"œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o",
	"ł", "l", "Ł", "l",
	"đ", "d", "Đ", "d",
	"þ", "th", "Þ", "th",
)

// Slugify lowercases s, strips diacritics and collapses every run of
// characters outside [a-z0-9] into a single hyphen. Leading and trailing
// hyphens are trimmed; the result may be empty.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, transliterations.Replace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Keys are the best-known source keys of a template, in precedence order.
type Keys struct {
	RegistryNumber string // empty when registry-unlisted
	Name           string // registry display name
	Folder         string // repository folder name
	Registered     bool   // the template appears in the registry
}

// Base returns the undisambiguated id for k.
func Base(k Keys) string {
	number := Slugify(k.RegistryNumber)
	switch {
	case number != "":
		if slug := Slugify(k.Name); slug != "" {
			return RegistryPrefix + "-" + number + "-" + slug
		}
		return RegistryPrefix + "-" + number
	case k.Registered:
		return ExternalPrefix + "-" + slugOrFallback(firstNonEmpty(k.Name, k.Folder))
	default:
		return RepositoryPrefix + "-" + slugOrFallback(firstNonEmpty(k.Folder, k.Name))
	}
}

// Candidate is a template group awaiting an id. SourceKey must be unique per
// group and stable across builds, for example "registry:02006".
type Candidate struct {
	SourceKey string
	Keys      Keys
}

// Assignment is the id given to one candidate.
type Assignment struct {
	SourceKey string
	Base      string
	ID        string
}

// Disambiguated reports whether the id differs from the base id.
func (a Assignment) Disambiguated() bool {
	return a.ID != a.Base
}

// Assign gives every candidate an id, in input order. Candidates sharing a
// base id are ordered by source key; the first keeps the base id and the
// rest are suffixed with a short hash of their source key. Registry numbers
// are already part of idta- base ids, so they never distinguish members of
// one base group. If ids still collide, Assign returns a CollisionError.
func Assign(candidates []Candidate) ([]Assignment, error) {
	out := make([]Assignment, len(candidates))
	byBase := make(map[string][]int)
	for i, c := range candidates {
		base := Base(c.Keys)
		out[i] = Assignment{SourceKey: c.SourceKey, Base: base, ID: base}
		byBase[base] = append(byBase[base], i)
	}

	for base, members := range byBase {
		if len(members) < 2 {
			continue
		}
		slices.SortFunc(members, func(a, b int) int {
			return cmp.Compare(candidates[a].SourceKey, candidates[b].SourceKey)
		})
		for _, i := range members[1:] {
			out[i].ID = base + "-" + suffix(candidates[i].SourceKey)
		}
	}

	owners := make(map[string][]string, len(out))
	for _, a := range out {
		owners[a.ID] = append(owners[a.ID], a.SourceKey)
	}
	var collided []string
	for id, keys := range owners {
		if len(keys) > 1 {
			collided = append(collided, id)
		}
	}
	if len(collided) > 0 {
		slices.Sort(collided)
		keys := owners[collided[0]]
		slices.Sort(keys)
		return nil, errors.NewCollisionError(collided[0], keys)
	}
	return out, nil
}

// suffix is the first eight hex digits of the SHA-256 of a source key.
func suffix(sourceKey string) string {
	sum := sha256.Sum256([]byte(sourceKey))
	return hex.EncodeToString(sum[:])[:8]
}

func slugOrFallback(s string) string {
	if slug := Slugify(s); slug != "" {
		return slug
	}
	return fallbackSlug
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
