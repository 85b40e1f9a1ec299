// internal/app/system/hierarchy/resolver.go

// Package hierarchy maps the free-text region and division labels that
// arrive on roster rows to catalog records. Matching runs in stages:
// exact key, bidirectional substring, then fuzzy as a last resort, with
// a warning logged for anything that still fails to resolve.
package hierarchy

import (
	"context"
	"strings"

	"github.com/baymark/rollcall/internal/app/system/normalize"
	"github.com/baymark/rollcall/internal/domain/models"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Fuzzy matches further than this edit distance are rejected; a roster
// label that mangled is safer left unresolved than guessed.
const maxFuzzyDistance = 3

type DivisionLister interface {
	ListActive(ctx context.Context) ([]models.Division, error)
}

type RegionLister interface {
	ListActive(ctx context.Context) ([]models.Region, error)
}

// Placement is the outcome of resolving one row's labels.
type Placement struct {
	DivisionID *primitive.ObjectID
	RegionID   *primitive.ObjectID

	// RegionStaff is set when the division label actually names a
	// region-level assignment; such rows carry no division.
	RegionStaff bool
}

type divisionEntry struct {
	id   primitive.ObjectID
	keys []string // name key plus alias key when present
}

type regionEntry struct {
	id  primitive.ObjectID
	key string
}

// Resolver holds one import run's catalog snapshot and memoized
// lookups. It is built per run and not safe for concurrent use.
type Resolver struct {
	divisions []divisionEntry
	regions   []regionEntry
	memo      map[string]Placement
	log       *zap.Logger
}

// Load snapshots the active catalogs for one import run.
func Load(ctx context.Context, divisions DivisionLister, regions RegionLister, log *zap.Logger) (*Resolver, error) {
	divs, err := divisions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	regs, err := regions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return NewResolver(divs, regs, log), nil
}

// NewResolver builds a resolver over already-loaded catalogs.
func NewResolver(divisions []models.Division, regions []models.Region, log *zap.Logger) *Resolver {
	r := &Resolver{
		memo: make(map[string]Placement),
		log:  log,
	}
	for _, d := range divisions {
		e := divisionEntry{id: d.ID, keys: []string{normalize.Division(d.NameCI)}}
		if d.AliasCI != "" {
			e.keys = append(e.keys, normalize.Division(d.AliasCI))
		}
		r.divisions = append(r.divisions, e)
	}
	for _, g := range regions {
		r.regions = append(r.regions, regionEntry{id: g.ID, key: normalize.Region(g.NameCI)})
	}
	return r
}

// Resolve maps a row's region and division labels to catalog IDs.
// Unresolvable labels leave the corresponding ID nil; the caller
// decides whether that blocks the row or merely flags it.
func (r *Resolver) Resolve(regionLabel, divisionLabel string) Placement {
	memoKey := regionLabel + "\x00" + divisionLabel
	if p, ok := r.memo[memoKey]; ok {
		return p
	}

	var p Placement

	regionKey := normalize.Region(regionLabel)
	if regionKey != "" {
		if id, ok := r.matchRegion(regionKey); ok {
			p.RegionID = &id
		} else {
			r.log.Warn("unresolved region label",
				zap.String("label", regionLabel),
				zap.String("key", regionKey))
		}
	}

	if normalize.IsRegionStaff(divisionLabel) {
		p.RegionStaff = true
		// Region staff rows sometimes carry the region only in the
		// division column.
		if p.RegionID == nil {
			if id, ok := r.matchRegion(normalize.Region(divisionLabel)); ok {
				p.RegionID = &id
			}
		}
		r.memo[memoKey] = p
		return p
	}

	divKey := normalize.Division(divisionLabel)
	if divKey != "" {
		if id, ok := r.matchDivision(divKey); ok {
			p.DivisionID = &id
		} else {
			r.log.Warn("unresolved division label",
				zap.String("label", divisionLabel),
				zap.String("key", divKey))
		}
	}

	r.memo[memoKey] = p
	return p
}

func (r *Resolver) matchRegion(key string) (primitive.ObjectID, bool) {
	if key == "" {
		return primitive.ObjectID{}, false
	}
	for _, e := range r.regions {
		if e.key == key {
			return e.id, true
		}
	}
	for _, e := range r.regions {
		if containsEither(e.key, key) {
			return e.id, true
		}
	}
	keys := make([]string, len(r.regions))
	for i, e := range r.regions {
		keys[i] = e.key
	}
	if i, ok := bestFuzzy(key, keys); ok {
		return r.regions[i].id, true
	}
	return primitive.ObjectID{}, false
}

func (r *Resolver) matchDivision(key string) (primitive.ObjectID, bool) {
	for _, e := range r.divisions {
		for _, k := range e.keys {
			if k == key {
				return e.id, true
			}
		}
	}
	for _, e := range r.divisions {
		for _, k := range e.keys {
			if containsEither(k, key) {
				return e.id, true
			}
		}
	}
	// Flatten to parallel slices so the fuzzy rank index maps back to
	// a division.
	var keys []string
	var owners []int
	for i, e := range r.divisions {
		for _, k := range e.keys {
			keys = append(keys, k)
			owners = append(owners, i)
		}
	}
	if i, ok := bestFuzzy(key, keys); ok {
		return r.divisions[owners[i]].id, true
	}
	return primitive.ObjectID{}, false
}

// containsEither reports a substring hit in either direction, so
// "north valley" matches both "valley" and "north valley annex".
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func bestFuzzy(key string, candidates []string) (int, bool) {
	ranks := fuzzy.RankFindNormalizedFold(key, candidates)
	best := -1
	bestDist := maxFuzzyDistance + 1
	for _, rk := range ranks {
		if rk.Distance < bestDist {
			bestDist = rk.Distance
			best = rk.OriginalIndex
		}
	}
	return best, best >= 0
}
