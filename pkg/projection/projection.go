// Package projection derives the visible view of a release collection from
// the accumulated base, the active filters and the sort order. Every function
// is pure: the base slice is never reordered or modified.
package projection

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/diegoralt/Artify/pkg/catalog"
)

// SortOrder orders a projected view by release year.
type SortOrder string

const (
	// SortNone keeps the base order.
	SortNone SortOrder = ""
	// SortNewestFirst sorts by year descending; unknown years sort last.
	SortNewestFirst SortOrder = "newest"
	// SortOldestFirst sorts by year ascending; unknown years sort last.
	SortOldestFirst SortOrder = "oldest"
)

// ParseSortOrder maps a query value to a SortOrder. Unknown values map to
// SortNone and ok=false.
func ParseSortOrder(s string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortNewestFirst:
		return SortNewestFirst, true
	case SortOldestFirst:
		return SortOldestFirst, true
	case SortNone:
		return SortNone, true
	}
	return SortNone, false
}

// Filters is the active filter selection. An empty set places no constraint
// on its dimension. Values are treated as immutable; the Toggle methods
// return modified copies.
type Filters struct {
	Years  map[int]struct{}
	Genres map[string]struct{}
	Labels map[string]struct{}
}

// IsActive reports whether any dimension constrains the view.
func (f Filters) IsActive() bool {
	return len(f.Years) > 0 || len(f.Genres) > 0 || len(f.Labels) > 0
}

// ToggleYear adds year to the selection, or removes it when present.
func (f Filters) ToggleYear(year int) Filters {
	f.Years = toggle(f.Years, year)
	return f
}

// ToggleGenre adds genre to the selection, or removes it when present.
func (f Filters) ToggleGenre(genre string) Filters {
	f.Genres = toggle(f.Genres, genre)
	return f
}

// ToggleLabel adds label to the selection, or removes it when present.
func (f Filters) ToggleLabel(label string) Filters {
	f.Labels = toggle(f.Labels, label)
	return f
}

// SelectedYears returns the selected years in ascending order.
func (f Filters) SelectedYears() []int {
	return sortedKeys(f.Years)
}

// SelectedGenres returns the selected genres in ascending order.
func (f Filters) SelectedGenres() []string {
	return sortedKeys(f.Genres)
}

// SelectedLabels returns the selected labels in ascending order.
func (f Filters) SelectedLabels() []string {
	return sortedKeys(f.Labels)
}

// Matches reports whether item passes every dimension. A genre filter
// matches when the item carries any selected genre.
func (f Filters) Matches(item catalog.CollectionItem) bool {
	if len(f.Years) > 0 {
		if _, ok := f.Years[item.Year]; !ok || !item.HasYear() {
			return false
		}
	}
	if len(f.Labels) > 0 {
		if _, ok := f.Labels[item.Label]; !ok {
			return false
		}
	}
	if len(f.Genres) > 0 {
		matched := false
		for _, g := range item.Genres {
			if _, ok := f.Genres[g]; ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Project filters base and sorts the survivors. The sort is stable, so items
// with equal keys keep their base order.
func Project(base []catalog.CollectionItem, filters Filters, order SortOrder) []catalog.CollectionItem {
	view := make([]catalog.CollectionItem, 0, len(base))
	for _, item := range base {
		if filters.Matches(item) {
			view = append(view, item)
		}
	}

	switch order {
	case SortNewestFirst:
		sort.SliceStable(view, func(i, j int) bool {
			return view[i].Year > view[j].Year
		})
	case SortOldestFirst:
		sort.SliceStable(view, func(i, j int) bool {
			return oldestKey(view[i]) < oldestKey(view[j])
		})
	}
	return view
}

// oldestKey sorts unknown years after every known one.
func oldestKey(item catalog.CollectionItem) int {
	if !item.HasYear() {
		return math.MaxInt
	}
	return item.Year
}

// Facets lists the filter values available over an unfiltered base.
type Facets struct {
	Years  []int    `json:"years"`
	Genres []string `json:"genres"`
	Labels []string `json:"labels"`
}

// ComputeFacets returns the distinct known years, genres and non-blank
// labels of base, each sorted ascending.
func ComputeFacets(base []catalog.CollectionItem) Facets {
	years := make(map[int]struct{})
	genres := make(map[string]struct{})
	labels := make(map[string]struct{})

	for _, item := range base {
		if item.HasYear() {
			years[item.Year] = struct{}{}
		}
		for _, g := range item.Genres {
			if strings.TrimSpace(g) != "" {
				genres[g] = struct{}{}
			}
		}
		if strings.TrimSpace(item.Label) != "" {
			labels[item.Label] = struct{}{}
		}
	}

	return Facets{
		Years:  sortedKeys(years),
		Genres: sortedKeys(genres),
		Labels: sortedKeys(labels),
	}
}

func toggle[K comparable](set map[K]struct{}, v K) map[K]struct{} {
	next := make(map[K]struct{}, len(set)+1)
	for k := range set {
		next[k] = struct{}{}
	}
	if _, ok := next[v]; ok {
		delete(next, v)
	} else {
		next[v] = struct{}{}
	}
	return next
}

func sortedKeys[K int | string](set map[K]struct{}) []K {
	keys := make([]K, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
