// Package indextest provides fixtures and property-test generators for
// packages that consume an index.
package indextest

import (
	"fmt"
	"slices"
	"time"

	"github.com/agentstation/utc"
	"pgregory.net/rapid"

	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/status"
)

// Fixed is the timestamp used by fixtures.
var Fixed = utc.New(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

// Nameplate returns a small, valid index with a registry template, an
// external template and a repository-only template.
func Nameplate() *index.Index {
	return &index.Index{
		SchemaVersion: constants.SchemaVersion,
		GeneratedAt:   Fixed,
		Sources: index.Sources{
			Registry:   constants.RegistryURL,
			Repository: constants.RepositoryURL,
		},
		Templates: []index.Template{
			{
				ID:        "ext-asset-interfaces-mapping",
				Name:      "Asset Interfaces Mapping",
				Status:    status.InReview,
				RawStatus: "In Review",
				Versions:  []index.Version{},
			},
			{
				ID:       "gh-carbon-footprint",
				Name:     "Carbon Footprint",
				Status:   status.Unknown,
				Versions: []index.Version{{
					Version:  "1.0.0",
					IsLatest: true,
					Links:    index.Links{GitHub: constants.RepositoryURL + "/tree/main/published/Carbon%20Footprint/1/0"},
					Repository: []index.RepositoryEntry{{
						Area:      index.AreaPublished,
						RepoPath:  "published/Carbon Footprint/1/0",
						GitHubURL: constants.RepositoryURL + "/tree/main/published/Carbon%20Footprint/1/0",
					}},
				}},
			},
			{
				ID:             "idta-02006-digital-nameplate",
				Name:           "Digital Nameplate",
				RegistryNumber: "02006",
				Status:         status.Published,
				RawStatus:      "Published",
				Description:    "Nameplate & marking <data>",
				Versions: []index.Version{
					{
						Version:  "2.0.0",
						IsLatest: true,
						Links: index.Links{
							PDF:    "https://industrialdigitaltwin.org/wp-content/uploads/IDTA-02006-2-0.pdf",
							GitHub: constants.RepositoryURL + "/tree/main/published/Digital%20nameplate/2/0",
						},
						Repository: []index.RepositoryEntry{{
							Area:      index.AreaPublished,
							RepoPath:  "published/Digital nameplate/2/0",
							GitHubURL: constants.RepositoryURL + "/tree/main/published/Digital%20nameplate/2/0",
						}},
					},
					{
						Version:    "1.0.0",
						Links:      index.Links{PDF: "https://industrialdigitaltwin.org/wp-content/uploads/IDTA-02006-1-0.pdf"},
						Repository: []index.RepositoryEntry{},
					},
				},
			},
		},
	}
}

// Index draws a structurally valid index: unique ids in ascending order,
// strictly parsed versions sorted newest first with a single latest flag.
func Index() *rapid.Generator[*index.Index] {
	return rapid.Custom(func(t *rapid.T) *index.Index {
		n := rapid.IntRange(0, 6).Draw(t, "templates")
		ids := rapid.SliceOfNDistinct(rapid.StringMatching(`(idta-0[0-9]{4}|ext|gh)-[a-z]{1,8}`), n, n, rapid.ID[string]).Draw(t, "ids")
		slices.Sort(ids)

		templates := make([]index.Template, 0, n)
		for _, id := range ids {
			templates = append(templates, Template(id).Draw(t, id))
		}

		return &index.Index{
			SchemaVersion: constants.SchemaVersion,
			GeneratedAt:   Timestamp().Draw(t, "generated_at"),
			Sources: index.Sources{
				Registry:   constants.RegistryURL,
				Repository: constants.RepositoryURL,
			},
			Templates: templates,
		}
	})
}

// Template draws a template with the given id.
func Template(id string) *rapid.Generator[index.Template] {
	return rapid.Custom(func(t *rapid.T) index.Template {
		count := rapid.IntRange(0, 4).Draw(t, "versions")
		majors := rapid.SliceOfNDistinct(rapid.IntRange(0, 20), count, count, rapid.ID[int]).Draw(t, "majors")
		slices.SortFunc(majors, func(a, b int) int { return b - a })

		versions := make([]index.Version, 0, count)
		for i, major := range majors {
			label := fmt.Sprintf("%d.%d.0", major, rapid.IntRange(0, 3).Draw(t, "minor"))
			v := index.Version{
				Version:    label,
				IsLatest:   i == 0,
				Repository: []index.RepositoryEntry{},
			}
			if rapid.Bool().Draw(t, "pdf") {
				v.Links.PDF = "https://industrialdigitaltwin.org/" + id + "-" + label + ".pdf"
			}
			if rapid.Bool().Draw(t, "repo") {
				path := "published/" + id + "/" + label
				v.Links.GitHub = constants.RepositoryURL + "/tree/main/" + path
				v.Repository = append(v.Repository, index.RepositoryEntry{
					Area:      index.AreaPublished,
					RepoPath:  path,
					GitHubURL: v.Links.GitHub,
				})
			}
			versions = append(versions, v)
		}

		return index.Template{
			ID:          id,
			Name:        rapid.StringMatching(`[A-Z][a-z]{2,10}( [A-Za-z&<>]{1,8}){0,3}`).Draw(t, "name"),
			Status:      rapid.SampledFrom(status.All()).Draw(t, "status"),
			Description: rapid.StringMatching(`[a-z ,.&]{0,30}`).Draw(t, "description"),
			Versions:    versions,
		}
	})
}

// Timestamp draws a second-precision UTC time.
func Timestamp() *rapid.Generator[utc.Time] {
	return rapid.Custom(func(t *rapid.T) utc.Time {
		secs := rapid.Int64Range(1_600_000_000, 1_900_000_000).Draw(t, "unix")
		return utc.New(time.Unix(secs, 0).UTC())
	})
}
