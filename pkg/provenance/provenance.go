// Package provenance provides field-level tracking of where each value of a
// built template came from.
package provenance

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/smtindex/internal/fsutil"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/sources"
)

// ResourceType names the kind of resource a provenance entry belongs to.
type ResourceType string

// Resource types.
const (
	ResourceTypeTemplate ResourceType = "template"
)

// Provenance tracks the origin of a field value.
type Provenance struct {
	Source   sources.ID `json:"source" yaml:"source"`                         // source that provided the value
	Field    string     `json:"field" yaml:"field"`                           // field path
	Value    any        `json:"value" yaml:"value"`                           // the value chosen
	Reason   string     `json:"reason,omitempty" yaml:"reason,omitempty"`     // why this value was chosen
	Rejected any        `json:"rejected,omitempty" yaml:"rejected,omitempty"` // competing value that lost, if any
}

// Map tracks provenance for multiple resources.
type Map map[string][]Provenance // key is "resourceType:resourceID:fieldPath"

// Tracker manages provenance tracking during a merge.
type Tracker interface {
	// Track records provenance for a field
	Track(resourceType ResourceType, resourceID string, field string, p Provenance)

	// FindByField retrieves provenance for a specific field
	FindByField(resourceType ResourceType, resourceID string, field string) []Provenance

	// FindByResource retrieves all provenance for a resource
	FindByResource(resourceType ResourceType, resourceID string) map[string][]Provenance

	// Map returns the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

type tracker struct {
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker. A disabled tracker records
// nothing and returns nil from every lookup.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

func (p *tracker) Track(resourceType ResourceType, resourceID string, field string, history Provenance) {
	if !p.enabled {
		return
	}
	if history.Field == "" {
		history.Field = field
	}
	key := makeKey(resourceType, resourceID, field)
	p.provenance[key] = append(p.provenance[key], history)
}

func (p *tracker) FindByField(resourceType ResourceType, resourceID string, field string) []Provenance {
	if !p.enabled {
		return nil
	}
	return p.provenance[makeKey(resourceType, resourceID, field)]
}

func (p *tracker) FindByResource(resourceType ResourceType, resourceID string) map[string][]Provenance {
	if !p.enabled {
		return nil
	}

	result := make(map[string][]Provenance)
	prefix := fmt.Sprintf("%s:%s:", resourceType, resourceID)
	for key, info := range p.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[field] = info
		}
	}
	return result
}

func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}

	// copy so callers cannot mutate tracker state
	result := make(Map, len(p.provenance))
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

func (p *tracker) Clear() {
	p.provenance = make(Map)
}

func makeKey(resourceType ResourceType, resourceID string, field string) string {
	return fmt.Sprintf("%s:%s:%s", resourceType, resourceID, field)
}

// Report groups a Map by resource.
type Report struct {
	Resources []ResourceProvenance `json:"resources" yaml:"resources"`
}

// ResourceProvenance contains provenance for a single resource.
type ResourceProvenance struct {
	Type   ResourceType `json:"type" yaml:"type"`
	ID     string       `json:"id" yaml:"id"`
	Fields []Field      `json:"fields" yaml:"fields"`
}

// Field contains the provenance of a single field.
type Field struct {
	Name      string       `json:"name" yaml:"name"`
	Current   Provenance   `json:"current" yaml:"current"`
	History   []Provenance `json:"history,omitempty" yaml:"history,omitempty"`
	Conflicts []Conflict   `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}

// Conflict describes two sources offering different values for one field.
type Conflict struct {
	Sources        []sources.ID `json:"sources" yaml:"sources"`
	Values         []any        `json:"values" yaml:"values"`
	Resolution     string       `json:"resolution" yaml:"resolution"`
	SelectedSource sources.ID   `json:"selected_source" yaml:"selected_source"`
}

// GenerateReport creates a report from a Map. Resources and fields are
// sorted so the report is stable across builds. The first entry tracked for
// a field is its current value.
func GenerateReport(provenance Map) *Report {
	byResource := make(map[string]*ResourceProvenance)
	for key, infos := range provenance {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 || len(infos) == 0 {
			continue
		}
		resourceKey := parts[0] + ":" + parts[1]
		resource, ok := byResource[resourceKey]
		if !ok {
			resource = &ResourceProvenance{Type: ResourceType(parts[0]), ID: parts[1]}
			byResource[resourceKey] = resource
		}
		f := Field{Name: parts[2], Current: infos[0], Conflicts: detectConflicts(infos)}
		if len(infos) > 1 {
			f.History = append([]Provenance{}, infos[1:]...)
		}
		resource.Fields = append(resource.Fields, f)
	}

	report := &Report{Resources: make([]ResourceProvenance, 0, len(byResource))}
	for _, r := range byResource {
		slices.SortFunc(r.Fields, func(a, b Field) int { return cmp.Compare(a.Name, b.Name) })
		report.Resources = append(report.Resources, *r)
	}
	slices.SortFunc(report.Resources, func(a, b ResourceProvenance) int {
		if c := cmp.Compare(a.Type, b.Type); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return report
}

// detectConflicts reports when a field's chosen value displaced a value
// offered by another source.
func detectConflicts(infos []Provenance) []Conflict {
	var conflicts []Conflict
	for _, info := range infos {
		if info.Rejected == nil {
			continue
		}
		if s, ok := info.Rejected.(string); ok && s == "" {
			continue
		}
		if fmt.Sprint(info.Rejected) == fmt.Sprint(info.Value) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Sources:        []sources.ID{info.Source, otherSource(info.Source)},
			Values:         []any{info.Value, info.Rejected},
			Resolution:     info.Reason,
			SelectedSource: info.Source,
		})
	}
	return conflicts
}

func otherSource(id sources.ID) sources.ID {
	if id == sources.RegistryID {
		return sources.RepositoryID
	}
	return sources.RegistryID
}

// Resource returns the provenance recorded for one resource.
func (r *Report) Resource(resourceType ResourceType, id string) (ResourceProvenance, bool) {
	i := slices.IndexFunc(r.Resources, func(res ResourceProvenance) bool {
		return res.Type == resourceType && res.ID == id
	})
	if i < 0 {
		return ResourceProvenance{}, false
	}
	return r.Resources[i], true
}

// ConflictCount returns the number of resolved conflicts in the report.
func (r *Report) ConflictCount() int {
	n := 0
	for _, res := range r.Resources {
		for _, f := range res.Fields {
			n += len(f.Conflicts)
		}
	}
	return n
}

// String generates a human-readable representation of the report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	for _, resource := range r.Resources {
		fmt.Fprintf(&sb, "%s: %s\n", resource.Type, resource.ID)
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		for _, f := range resource.Fields {
			fmt.Fprintf(&sb, "  %s:\n", f.Name)
			fmt.Fprintf(&sb, "    Current: %v (from %s)\n", f.Current.Value, f.Current.Source)
			if f.Current.Reason != "" {
				fmt.Fprintf(&sb, "    Reason: %s\n", f.Current.Reason)
			}
			for _, c := range f.Conflicts {
				fmt.Fprintf(&sb, "    Conflict: %v over %v\n", c.Values[0], c.Values[1])
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// File is the on-disk form of a provenance report.
type File struct {
	Provenance *Report `json:"provenance" yaml:"provenance"`
}

// Write encodes the report as YAML.
func (r *Report) Write(w io.Writer) error {
	data, err := yaml.MarshalWithOptions(File{Provenance: r}, yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return errors.WrapParse("yaml", "", err)
	}
	_, err = w.Write(data)
	return err
}

// Save writes the report atomically to path.
func (r *Report) Save(path string) error {
	return fsutil.WriteFileAtomic(path, r.Write)
}

// Load reads a provenance report from a YAML file.
// Returns nil, nil if the file doesn't exist (not an error).
func Load(path string) (*Report, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return f.Provenance, nil
}
