package site

import (
	"maps"
	"reflect"
	"sort"
	"sync/atomic"

	"github.com/spf13/cast"

	"github.com/l0p7/seometa/internal/host"
	"github.com/l0p7/seometa/internal/runtime/invalidation"
)

// Live is a ContentProvider and OptionProvider backed by an atomically
// swapped Snapshot. Readers never block writers.
type Live struct {
	current atomic.Pointer[Snapshot]
}

// NewLive starts from snap, or from Empty when snap is nil.
func NewLive(snap *Snapshot) *Live {
	if snap == nil {
		snap = Empty()
	}
	l := &Live{}
	l.current.Store(snap)
	return l
}

// Snapshot returns the active snapshot.
func (l *Live) Snapshot() *Snapshot { return l.current.Load() }

// Replace installs next and returns the mutation events describing what
// changed, ordered option events first, then posts, then terms.
func (l *Live) Replace(next *Snapshot) []invalidation.MutationEvent {
	if next == nil {
		next = Empty()
	}
	prev := l.current.Swap(next)
	return Diff(prev, next)
}

// Diff translates the differences between two snapshots into events.
func Diff(prev, next *Snapshot) []invalidation.MutationEvent {
	if prev == nil {
		prev = Empty()
	}
	var events []invalidation.MutationEvent

	optionEvents := []struct {
		name string
		typ  invalidation.EventType
	}{
		{host.OptionBlogDescription, invalidation.BlogDescriptionChanged},
		{host.OptionTheme, invalidation.ThemeSwitched},
		{host.OptionPermalinkStructure, invalidation.PermalinkSettingsChanged},
	}
	for _, oe := range optionEvents {
		if cast.ToString(prev.options[oe.name]) != cast.ToString(next.options[oe.name]) {
			events = append(events, invalidation.MutationEvent{Type: oe.typ})
		}
	}

	for _, id := range sortedKeys(prev.posts, next.posts) {
		before, had := prev.posts[id]
		after, has := next.posts[id]
		switch {
		case !had && has:
			events = append(events, invalidation.MutationEvent{Type: invalidation.PostPublished, SubjectID: id})
		case had && !has:
			events = append(events, invalidation.MutationEvent{Type: invalidation.PostDeleted, SubjectID: id})
		case !reflect.DeepEqual(before, after):
			events = append(events, invalidation.MutationEvent{Type: invalidation.PostUpdated, SubjectID: id})
		}
	}

	refs := make(map[host.TermRef]struct{}, len(prev.terms)+len(next.terms))
	for ref := range prev.terms {
		refs[ref] = struct{}{}
	}
	for ref := range next.terms {
		refs[ref] = struct{}{}
	}
	ordered := make([]host.TermRef, 0, len(refs))
	for ref := range refs {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Taxonomy != ordered[j].Taxonomy {
			return ordered[i].Taxonomy < ordered[j].Taxonomy
		}
		return ordered[i].ID < ordered[j].ID
	})
	for _, ref := range ordered {
		before, had := prev.terms[ref]
		after, has := next.terms[ref]
		ev := invalidation.MutationEvent{SubjectID: ref.ID, Taxonomy: ref.Taxonomy}
		switch {
		case had && !has:
			ev.Type = invalidation.TermDeleted
		case !had || !reflect.DeepEqual(before, after):
			ev.Type = invalidation.TermEdited
		default:
			continue
		}
		events = append(events, ev)
	}
	return events
}

func sortedKeys(a, b map[int]Post) []int {
	set := maps.Clone(a)
	if set == nil {
		set = map[int]Post{}
	}
	maps.Copy(set, b)
	keys := make([]int, 0, len(set))
	for id := range set {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	return keys
}

func (l *Live) GetOption(name string) host.Value {
	return host.NewValue(l.Snapshot().options[name])
}

func (l *Live) post(id int) Post { return l.Snapshot().posts[id] }

func (l *Live) GetCustomField(name string, id int) string { return l.post(id).Fields[name] }
func (l *Live) GetExcerptSource(id int) string            { return l.post(id).Excerpt }
func (l *Live) GetPostContent(id int) string              { return l.post(id).Content }
func (l *Live) GetPostTitle(id int) string                { return l.post(id).Title }
func (l *Live) GetPostType(id int) host.SingularType      { return l.post(id).Type }
func (l *Live) GetPostVisibility(id int) host.Visibility  { return l.post(id).Visibility }

func (l *Live) GetTerm(id int, taxonomy string) (host.TermRef, bool) {
	ref := host.TermRef{ID: id, Taxonomy: taxonomy}
	t, ok := l.Snapshot().terms[ref]
	if !ok {
		return host.TermRef{}, false
	}
	ref.Name = t.Name
	return ref, true
}

func (l *Live) term(ref host.TermRef) Term {
	return l.Snapshot().terms[host.TermRef{ID: ref.ID, Taxonomy: ref.Taxonomy}]
}

func (l *Live) GetTermMeta(ref host.TermRef) map[string]string { return l.term(ref).Meta }
func (l *Live) GetTermDescription(ref host.TermRef) string     { return l.term(ref).Description }

func (l *Live) GetAuthorName(id int) string { return l.Snapshot().authors[id].Name }

func (l *Live) GetAuthorMeta(id int, key string) string {
	return l.Snapshot().authors[id].Meta[key]
}

var (
	_ host.ContentProvider = (*Live)(nil)
	_ host.OptionProvider  = (*Live)(nil)
)
