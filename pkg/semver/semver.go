// Package semver parses the informal version labels found in the registry
// and repository into comparable keys.
//
// A label resolves to one of three kinds. Strict labels follow
// major.minor[.patch] with an optional leading "v" and normalize to
// "major.minor.patch". Coerced labels contain digits but not in that shape;
// their leading numeric groups give the ordering while the label itself is
// kept verbatim. Opaque labels carry no digits at all. Strict keys always
// sort above coerced keys, which sort above opaque keys.
package semver

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind ranks how confidently a label was parsed.
type Kind int

// Label kinds, lowest rank first.
const (
	Opaque Kind = iota
	Coerced
	Strict
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Strict:
		return "strict"
	case Coerced:
		return "coerced"
	default:
		return "opaque"
	}
}

var (
	strictPattern  = regexp.MustCompile(`^[vV]?(\d+)\.(\d+)(?:\.(\d+))?$`)
	numericPattern = regexp.MustCompile(`\d+(?:\.\d+){0,2}`)
)

// Key is a comparable version key.
type Key struct {
	Major int
	Minor int
	Patch int
	Kind  Kind
	Label string // trimmed input label
}

// Parse resolves a label into a Key. It never fails; irregular labels
// produce Coerced or Opaque keys.
func Parse(label string) Key {
	trimmed := strings.TrimSpace(label)
	if m := strictPattern.FindStringSubmatch(trimmed); m != nil {
		return Key{
			Major: atoi(m[1]),
			Minor: atoi(m[2]),
			Patch: atoi(m[3]),
			Kind:  Strict,
			Label: trimmed,
		}
	}
	if m := numericPattern.FindString(trimmed); m != "" {
		parts := strings.Split(m, ".")
		k := Key{Kind: Coerced, Label: trimmed, Major: atoi(parts[0])}
		if len(parts) > 1 {
			k.Minor = atoi(parts[1])
		}
		if len(parts) > 2 {
			k.Patch = atoi(parts[2])
		}
		return k
	}
	return Key{Kind: Opaque, Label: trimmed}
}

// FromPathParts builds a strict key from numeric folder names such as
// ["3", "0", "1"]. At least two and at most three numeric parts are
// required.
func FromPathParts(parts []string) (Key, bool) {
	if len(parts) < 2 || len(parts) > 3 {
		return Key{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Key{}, false
		}
		nums[i] = n
	}
	k := Key{Major: nums[0], Minor: nums[1], Patch: nums[2], Kind: Strict}
	k.Label = k.String()
	return k, true
}

// Valid reports whether label parses strictly.
func Valid(label string) bool {
	return Parse(label).Kind == Strict
}

// String returns the canonical form: "major.minor.patch" for strict keys,
// the original label otherwise.
func (k Key) String() string {
	if k.Kind == Strict {
		return fmt.Sprintf("%d.%d.%d", k.Major, k.Minor, k.Patch)
	}
	return k.Label
}

// Identity returns the grouping identity of a key. Two labels describe the
// same version exactly when their identities are equal.
func (k Key) Identity() string {
	return k.Kind.String() + ":" + k.String()
}

// Compare orders keys ascending: by kind, then numerically, then by label.
// Opaque and coerced ties compare labels in reverse so that a descending
// sort lists them alphabetically.
func Compare(a, b Key) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if a.Kind != Opaque {
		if c := cmp.Compare(a.Major, b.Major); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Minor, b.Minor); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Patch, b.Patch); c != 0 {
			return c
		}
	}
	if a.Kind == Strict {
		return 0
	}
	return cmp.Compare(b.Label, a.Label)
}

// CompareLabels parses and compares two labels.
func CompareLabels(a, b string) int {
	return Compare(Parse(a), Parse(b))
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
