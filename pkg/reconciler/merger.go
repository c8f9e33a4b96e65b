package reconciler

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/identifier"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/logging"
	"github.com/agentstation/smtindex/pkg/provenance"
	"github.com/agentstation/smtindex/pkg/semver"
	"github.com/agentstation/smtindex/pkg/sources"
	"github.com/agentstation/smtindex/pkg/status"
)

// group is one future template: a registry group, a repository group, or a
// joined pair of both.
type group struct {
	candidate  identifier.Candidate
	registry   *registryGroup
	repository *repositoryGroup
	method     MatchMethod
}

// merger holds the state of a single merge.
type merger struct {
	opts     *options
	in       Input
	tracker  provenance.Tracker
	warnings []Warning
	stats    Statistics
}

func newMerger(opts *options, in Input) *merger {
	return &merger{
		opts:    opts,
		in:      in,
		tracker: provenance.NewTracker(opts.tracking),
		stats: Statistics{
			RegistryRecords:   len(in.Registry),
			RepositoryRecords: len(in.Repository),
			JoinedBy:          make(map[MatchMethod]int),
		},
	}
}

// now reads the clock at the precision the index records.
func (m *merger) now() time.Time {
	return m.opts.clock().UTC().Truncate(time.Second)
}

func (m *merger) run(ctx context.Context) (*Result, error) {
	logger := logging.FromContext(ctx)
	started := m.now()
	if !m.opts.buildStart.IsZero() {
		started = m.opts.buildStart.UTC().Truncate(time.Second)
	}

	m.checkSources()

	c := collect(m.in)
	m.warnings = append(m.warnings, c.skipped...)
	m.stats.RegistryGroups = len(c.registry)
	m.stats.RepositoryGroups = len(c.repository)

	j := match(c)
	m.warnings = append(m.warnings, j.warnings...)

	groups := m.groups(c, j)
	if err := ctx.Err(); err != nil {
		return nil, &errors.ResourceError{Operation: "merge", Resource: "index", Message: "canceled", Err: errors.ErrCanceled}
	}

	candidates := make([]identifier.Candidate, len(groups))
	for i, g := range groups {
		candidates[i] = g.candidate
	}
	assignments, err := identifier.Assign(candidates)
	if err != nil {
		logger.Error().Err(err).Msg("Identifier collision survived disambiguation")
		return nil, err
	}

	templates := make([]index.Template, 0, len(groups))
	for i, g := range groups {
		a := assignments[i]
		if a.Disambiguated() {
			m.stats.Disambiguated++
			m.warn(WarningDisambiguated, a.ID, fmt.Sprintf("id %s is shared by several templates; %s was disambiguated", a.Base, g.candidate.SourceKey))
		}
		templates = append(templates, m.assemble(a.ID, g))
	}
	slices.SortFunc(templates, func(a, b index.Template) int { return cmp.Compare(a.ID, b.ID) })

	completed := m.now()
	idx := &index.Index{
		SchemaVersion: constants.SchemaVersion,
		GeneratedAt:   utc.New(completed),
		Sources: index.Sources{
			Registry:   m.in.RegistryMetadata.URL,
			Repository: m.in.RepositoryMetadata.URL,
		},
		Templates: templates,
	}
	if m.opts.provenance {
		idx.Provenance = m.buildProvenance(started, completed)
	}

	m.stats.Templates = len(templates)
	m.stats.Versions = idx.VersionCount()
	return &Result{
		Index:      idx,
		Warnings:   m.warnings,
		Provenance: m.tracker.Map(),
		Statistics: m.stats,
	}, nil
}

// checkSources records warnings about one-sided or inconsistent inputs.
func (m *merger) checkSources() {
	check := func(id sources.ID, n int, meta sources.Metadata) {
		if n == 0 {
			m.warn(WarningEmptySource, "", fmt.Sprintf("%s returned no records; templates from it are missing", id))
		}
		if meta.RecordCount != n {
			m.warn(WarningCountMismatch, "", fmt.Sprintf("%s metadata reports %d records, %d received", id, meta.RecordCount, n))
		}
	}
	check(sources.RegistryID, len(m.in.Registry), m.in.RegistryMetadata)
	check(sources.RepositoryID, len(m.in.Repository), m.in.RepositoryMetadata)
}

// groups lists every future template: registry groups with their joined
// folder, then unjoined repository groups.
func (m *merger) groups(c *collector, j *join) []group {
	out := make([]group, 0, len(c.registry)+len(c.repository))
	for _, reg := range c.registry {
		g := group{
			registry: reg,
			candidate: identifier.Candidate{
				SourceKey: reg.key,
				Keys: identifier.Keys{
					RegistryNumber: reg.number,
					Name:           reg.name(),
					Registered:     true,
				},
			},
		}
		if repo, ok := j.byRegistry[reg]; ok {
			g.repository = repo
			g.method = j.methods[reg]
			g.candidate.Keys.Folder = repo.folder
			m.stats.Joined++
			m.stats.JoinedBy[g.method]++
		} else {
			m.stats.RegistryOnly++
		}
		out = append(out, g)
	}
	for _, repo := range c.repository {
		if j.claimed(repo) {
			continue
		}
		m.stats.RepositoryOnly++
		out = append(out, group{
			repository: repo,
			candidate: identifier.Candidate{
				SourceKey: "repository:" + repo.key,
				Keys:      identifier.Keys{Folder: repo.folder},
			},
		})
	}
	return out
}

// assemble builds the template for one group.
func (m *merger) assemble(id string, g group) index.Template {
	t := index.Template{ID: id, Status: status.Unknown}

	var (
		registryVersions []sources.RegistryVersion
		repositoryRecs   []sources.RepositoryRecord
		templatePDF      string
	)
	if g.repository != nil {
		repositoryRecs = g.repository.records
	}

	if reg := g.registry; reg != nil {
		t.Name = reg.name()
		t.RegistryNumber = reg.number
		t.RawStatus = reg.first(func(r sources.RegistryRecord) string { return r.StatusText })
		t.Status = status.Normalize(t.RawStatus)
		t.Description = reg.first(func(r sources.RegistryRecord) string { return r.Description })
		templatePDF = reg.first(func(r sources.RegistryRecord) string { return r.PDFURL })
		registryVersions = reg.versions()

		if t.Name == "" && g.repository != nil {
			t.Name = g.repository.folder
			m.track(id, "name", sources.RepositoryID, t.Name, "registry name missing", nil)
		} else {
			var rejected any
			if g.repository != nil && normalizeName(g.repository.folder) != normalizeName(t.Name) {
				rejected = g.repository.folder
				m.warn(WarningNameMismatch, id, fmt.Sprintf("registry name %q differs from folder %q (joined by %s)", t.Name, g.repository.folder, g.method))
			}
			m.track(id, "name", sources.RegistryID, t.Name, "registry name preferred", rejected)
		}
		if t.RegistryNumber != "" {
			m.track(id, "idta_number", sources.RegistryID, t.RegistryNumber, "registry number", nil)
		}
		m.track(id, "status", sources.RegistryID, string(t.Status), fmt.Sprintf("normalized from %q", t.RawStatus), nil)
		if t.Description != "" {
			m.track(id, "description", sources.RegistryID, t.Description, "registry description", nil)
		}
		if g.repository != nil {
			m.track(id, "join", sources.RegistryID, g.repository.folder, string(g.method), nil)
		}
	} else {
		t.Name = g.repository.folder
		m.track(id, "name", sources.RepositoryID, t.Name, "repository folder name", nil)
		m.track(id, "status", sources.RepositoryID, string(t.Status), "not listed in the registry", nil)
	}

	t.Versions = Versions(registryVersions, templatePDF, repositoryRecs)
	for _, v := range t.Versions {
		if !semver.Valid(v.Version) {
			m.warn(WarningIrregularVersion, id, fmt.Sprintf("version label %q is not a semantic version", v.Version))
		}
		m.trackLinks(id, v, templatePDF)
	}
	return t
}

func (m *merger) trackLinks(id string, v index.Version, templatePDF string) {
	prefix := "versions." + v.Version + ".links."
	if v.Links.PDF != "" {
		reason := "version-specific registry link"
		if v.Links.PDF == templatePDF {
			reason = "template-level registry link"
		}
		m.track(id, prefix+"pdf", sources.RegistryID, v.Links.PDF, reason, nil)
	}
	if v.Links.GitHub != "" {
		var rejected any
		if len(v.Repository) > 1 {
			rejected = v.Repository[1].GitHubURL
		}
		m.track(id, prefix+"github", sources.RepositoryID, v.Links.GitHub, v.Repository[0].Area+" folder preferred", rejected)
	}
}

func (m *merger) track(id, field string, source sources.ID, value any, reason string, rejected any) {
	m.tracker.Track(provenance.ResourceTypeTemplate, id, field, provenance.Provenance{
		Source:   source,
		Value:    value,
		Reason:   reason,
		Rejected: rejected,
	})
}

func (m *merger) warn(code WarningCode, templateID, message string) {
	m.warnings = append(m.warnings, Warning{Code: code, TemplateID: templateID, Message: message})
}

func (m *merger) buildProvenance(started, completed time.Time) *index.Provenance {
	duration := completed.Sub(started).Seconds()
	if duration < 0 {
		duration = 0
	}
	return &index.Provenance{
		BuildStartedAt:       utc.New(started),
		BuildCompletedAt:     utc.New(completed),
		BuildDurationSeconds: math.Round(duration*1000) / 1000,
		Sources: []index.SourceProvenance{
			sourceProvenance(sources.RegistryID, m.in.RegistryMetadata),
			sourceProvenance(sources.RepositoryID, m.in.RepositoryMetadata),
		},
		GitCommit:   m.opts.gitCommit,
		ToolVersion: m.opts.toolVersion,
	}
}

func sourceProvenance(id sources.ID, meta sources.Metadata) index.SourceProvenance {
	return index.SourceProvenance{
		Name:        string(id),
		URL:         meta.URL,
		FetchedAt:   utc.New(meta.FetchedAt.Time.UTC().Truncate(time.Second)),
		RecordCount: meta.RecordCount,
	}
}
