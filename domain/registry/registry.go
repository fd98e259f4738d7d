package registry

import (
	_ "embed"
	"encoding/json"
	"strings"

	"attest/internal/errors"
)

//go:embed data/domain_list.json
var domainListJSON []byte

// Entry is one control in the taxonomy. DomainID is the canonical
// identifier; DomainName is what evidence folder names are reconciled
// against. Several entries may share a DomainName on purpose: one folder of
// evidence can satisfy multiple controls.
type Entry struct {
	DomainID            string `json:"Domain_Id"`
	DomainName          string `json:"Domain_Name"`
	Question            string `json:"Question"`
	QuestionDescription string `json:"Question_Description"`
}

// Registry is the immutable control taxonomy, loaded once at startup and
// safe for unsynchronized concurrent reads. Insertion order is preserved so
// that first-match semantics stay reproducible across runs.
type Registry struct {
	entries []Entry
	byID    map[string]int
	byName  map[string][]int
}

// Normalize applies the single normalization rule used on both registry
// names and folder names before any comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Load builds the registry from the embedded domain list
func Load() (*Registry, error) {
	var entries []Entry
	if err := json.Unmarshal(domainListJSON, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to parse embedded domain list")
	}
	return NewFromEntries(entries)
}

// NewFromEntries builds a registry from an explicit entry list. An empty or
// malformed list is fatal: no downstream mapping can be correct without it.
func NewFromEntries(entries []Entry) (*Registry, error) {
	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.DomainID) == "" || strings.TrimSpace(e.DomainName) == "" {
			continue
		}
		valid = append(valid, e)
	}
	if len(valid) == 0 {
		return nil, errors.RegistryInvalid("domain registry is empty after normalization")
	}

	r := &Registry{
		entries: valid,
		byID:    make(map[string]int, len(valid)),
		byName:  make(map[string][]int, len(valid)),
	}
	for i, e := range valid {
		if _, exists := r.byID[e.DomainID]; !exists {
			r.byID[e.DomainID] = i
		}
		name := Normalize(e.DomainName)
		r.byName[name] = append(r.byName[name], i)
	}
	return r, nil
}

// FindByID returns the entry for a canonical domain identifier
func (r *Registry) FindByID(id string) (Entry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// FindByNormalizedName returns every entry whose normalized name matches the
// normalized input, in registry insertion order.
func (r *Registry) FindByNormalizedName(name string) []Entry {
	idxs := r.byName[Normalize(name)]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Entry, len(idxs))
	for i, idx := range idxs {
		out[i] = r.entries[idx]
	}
	return out
}

// Entries returns all entries in insertion order
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registry entries
func (r *Registry) Len() int {
	return len(r.entries)
}

// ExpectedFolderNames lists, per domain, the normalized folder name an
// archive is expected to use for that control's evidence.
func (r *Registry) ExpectedFolderNames() map[string]string {
	out := make(map[string]string, len(r.entries))
	for _, e := range r.entries {
		out[e.DomainID] = Normalize(e.DomainName)
	}
	return out
}
