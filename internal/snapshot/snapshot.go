// Package snapshot holds the immutable metric snapshot published after each
// refresh cycle and the registry that hands it to concurrent scrape readers.
// A snapshot is built in a staging Builder and swapped in atomically; dead
// processes disappear because each publish replaces the previous snapshot
// wholesale instead of merging into it.
package snapshot

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// Label is a single metric label. Labels keep insertion order so that a
// family's label key set stays stable across scrapes.
type Label struct {
	Key   string
	Value string
}

// Labels is an ordered label set.
type Labels []Label

// L is a convenience constructor for an ordered label set from alternating
// key/value pairs.
func L(kv ...string) Labels {
	ls := make(Labels, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		ls = append(ls, Label{Key: kv[i], Value: kv[i+1]})
	}
	return ls
}

// Split returns the label keys and values as parallel slices.
func (ls Labels) Split() (keys, values []string) {
	keys = make([]string, len(ls))
	values = make([]string, len(ls))
	for i, l := range ls {
		keys[i] = l.Key
		values[i] = l.Value
	}
	return keys, values
}

// Get returns the value for a key, or "" when absent.
func (ls Labels) Get(key string) string {
	for _, l := range ls {
		if l.Key == key {
			return l.Value
		}
	}
	return ""
}

// fingerprint is the uniqueness key for (family, labels) within one snapshot.
func (ls Labels) fingerprint() string {
	var sb strings.Builder
	for _, l := range ls {
		sb.WriteString(l.Key)
		sb.WriteByte(0xfe)
		sb.WriteString(l.Value)
		sb.WriteByte(0xff)
	}
	return sb.String()
}

// Sample is one metric value with its label set.
type Sample struct {
	Labels Labels
	Value  float64
}

// Snapshot is the complete, immutable result of one refresh cycle.
// It must not be mutated after Publish.
type Snapshot struct {
	taken    time.Time
	families map[string][]Sample
}

// Taken reports when the snapshot was built.
func (s *Snapshot) Taken() time.Time { return s.taken }

// Families returns the family names in sorted order.
func (s *Snapshot) Families() []string {
	names := make([]string, 0, len(s.families))
	for name := range s.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Samples returns the samples recorded for a family, in insertion order.
func (s *Snapshot) Samples(family string) []Sample {
	return s.families[family]
}

// Len returns the total number of samples across all families.
func (s *Snapshot) Len() int {
	n := 0
	for _, ss := range s.families {
		n += len(ss)
	}
	return n
}

// Builder stages samples for the snapshot under construction. It is not safe
// for concurrent use; the refresh cycle writes into it from a single
// goroutine after per-entity sampling has completed.
type Builder struct {
	families map[string][]Sample
	index    map[string]map[string]int // family -> label fingerprint -> sample index
}

// NewBuilder returns an empty staging builder.
func NewBuilder() *Builder {
	return &Builder{
		families: make(map[string][]Sample),
		index:    make(map[string]map[string]int),
	}
}

// Add records a sample. A duplicate (family, labels) pair overwrites the
// earlier value so that a finished snapshot never carries two samples with
// the same label set.
func (b *Builder) Add(family string, labels Labels, value float64) {
	fp := labels.fingerprint()
	idx, ok := b.index[family]
	if !ok {
		idx = make(map[string]int)
		b.index[family] = idx
	}
	if i, dup := idx[fp]; dup {
		b.families[family][i].Value = value
		return
	}
	idx[fp] = len(b.families[family])
	b.families[family] = append(b.families[family], Sample{Labels: labels, Value: value})
}

// Snapshot seals the staged samples into an immutable snapshot. The builder
// must not be reused afterwards.
func (b *Builder) Snapshot() *Snapshot {
	return &Snapshot{
		taken:    time.Now().UTC(),
		families: b.families,
	}
}

// Registry is the single-writer, many-reader handoff point for the current
// snapshot. Readers never block on I/O: Current is a pointer load.
type Registry struct {
	cur atomic.Pointer[Snapshot]
}

// NewRegistry returns a registry pre-published with an empty snapshot so
// scrapes before the first completed cycle see no families rather than nil.
func NewRegistry() *Registry {
	r := &Registry{}
	r.cur.Store(NewBuilder().Snapshot())
	return r
}

// Publish atomically replaces the current snapshot.
func (r *Registry) Publish(s *Snapshot) {
	r.cur.Store(s)
}

// Current returns the most recently published snapshot.
func (r *Registry) Current() *Snapshot {
	return r.cur.Load()
}
