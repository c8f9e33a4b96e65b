package identifier

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/agentstation/smtindex/pkg/errors"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Digital Nameplate", "digital-nameplate"},
		{"Generic Frame for Technical Data", "generic-frame-for-technical-data"},
		{"  --Hello,   World!--  ", "hello-world"},
		{"Contact Information (Kontaktinformationen)", "contact-information-kontaktinformationen"},
		{"Größe & Maße", "grosse-masse"},
		{"Café Crème", "cafe-creme"},
		{"Time Series Data 1.1", "time-series-data-1-1"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyShape(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := Slugify(rapid.String().Draw(rt, "s"))
		if s == "" {
			return
		}
		if s[0] == '-' || s[len(s)-1] == '-' {
			rt.Fatalf("slug %q has edge hyphen", s)
		}
		for i := 0; i < len(s); i++ {
			c := s[i]
			ok := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-'
			if !ok {
				rt.Fatalf("slug %q contains %q", s, c)
			}
			if c == '-' && s[i+1] == '-' {
				rt.Fatalf("slug %q has a hyphen run", s)
			}
		}
		if Slugify(s) != s {
			rt.Fatalf("slug %q is not a fixed point", s)
		}
	})
}

func TestBase(t *testing.T) {
	tests := []struct {
		name string
		keys Keys
		want string
	}{
		{"registry number", Keys{RegistryNumber: "02006", Name: "Digital Nameplate", Registered: true}, "idta-02006-digital-nameplate"},
		{"registry number wins over folder", Keys{RegistryNumber: "02006", Name: "Digital Nameplate", Folder: "DigitalNameplate", Registered: true}, "idta-02006-digital-nameplate"},
		{"registry number without name", Keys{RegistryNumber: "02010", Registered: true}, "idta-02010"},
		{"registry unlisted", Keys{Name: "Asset Interfaces Mapping", Registered: true}, "ext-asset-interfaces-mapping"},
		{"repository only", Keys{Folder: "Carbon Footprint"}, "gh-carbon-footprint"},
		{"repository only without slug", Keys{Folder: "???"}, "gh-unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Base(tt.keys))
		})
	}
}

func TestAssignDistinctNumbers(t *testing.T) {
	got, err := Assign([]Candidate{
		{SourceKey: "registry:02100", Keys: Keys{RegistryNumber: "02100", Name: "Test Template", Registered: true}},
		{SourceKey: "registry:02101", Keys: Keys{RegistryNumber: "02101", Name: "Test Template", Registered: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, "idta-02100-test-template", got[0].ID)
	assert.Equal(t, "idta-02101-test-template", got[1].ID)
	assert.False(t, got[0].Disambiguated())
	assert.False(t, got[1].Disambiguated())
}

func TestAssignDisambiguatesCollisions(t *testing.T) {
	candidates := []Candidate{
		{SourceKey: "name:test-template", Keys: Keys{Name: "Test-Template", Registered: true}},
		{SourceKey: "name:test template", Keys: Keys{Name: "Test Template", Registered: true}},
	}
	got, err := Assign(candidates)
	require.NoError(t, err)

	// "name:test template" sorts first and keeps the base id
	assert.Equal(t, "ext-test-template", got[1].ID)
	assert.True(t, got[0].Disambiguated())
	assert.Regexp(t, `^ext-test-template-[0-9a-f]{8}$`, got[0].ID)

	again, err := Assign([]Candidate{candidates[1], candidates[0]})
	require.NoError(t, err)
	assert.Equal(t, got[0].ID, again[1].ID)
	assert.Equal(t, got[1].ID, again[0].ID)
}

func TestAssignUnresolvableCollision(t *testing.T) {
	// "Foo!" collides with "Foo" and is suffixed with the hash of its source
	// key, which a third template already carries in its name.
	sum := sha256.Sum256([]byte("registry-name:foo!"))
	hash := hex.EncodeToString(sum[:])[:8]

	_, err := Assign([]Candidate{
		{SourceKey: "registry-name:foo", Keys: Keys{Name: "Foo", Registered: true}},
		{SourceKey: "registry-name:foo!", Keys: Keys{Name: "Foo!", Registered: true}},
		{SourceKey: "registry-name:foo " + hash, Keys: Keys{Name: "Foo " + hash, Registered: true}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsCollision(err))

	var collision *errors.CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "ext-foo-"+hash, collision.ID)
	assert.Equal(t, []string{"registry-name:foo " + hash, "registry-name:foo!"}, collision.Keys)
}

func TestAssignRegistryNumbersUseHashSuffix(t *testing.T) {
	// two registry rows with the same number and slug share a base id
	got, err := Assign([]Candidate{
		{SourceKey: "registry:02006", Keys: Keys{RegistryNumber: "02006", Name: "Digital Nameplate", Registered: true}},
		{SourceKey: "registry:02006 ", Keys: Keys{RegistryNumber: "02006", Name: "Digital nameplate", Registered: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, "idta-02006-digital-nameplate", got[0].ID)
	assert.Regexp(t, `^idta-02006-digital-nameplate-[0-9a-f]{8}$`, got[1].ID)
}

func TestAssignDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "n")
		seen := map[string]bool{}
		var candidates []Candidate
		for i := 0; i < n; i++ {
			name := rapid.SampledFrom([]string{"Alpha", "alpha", "Beta", "A-L-P-H-A", "beta!"}).Draw(rt, "name")
			key := rapid.StringMatching(`[a-z]{1,4}`).Draw(rt, "key")
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, Candidate{SourceKey: key, Keys: Keys{Name: name, Registered: true}})
		}

		first, err := Assign(candidates)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		second, _ := Assign(candidates)
		ids := map[string]bool{}
		for i := range first {
			if first[i] != second[i] {
				rt.Fatalf("non-deterministic assignment %v vs %v", first[i], second[i])
			}
			if ids[first[i].ID] {
				rt.Fatalf("duplicate id %s", first[i].ID)
			}
			ids[first[i].ID] = true
		}
	})
}
