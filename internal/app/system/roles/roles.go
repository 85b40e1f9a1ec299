// internal/app/system/roles/roles.go

// Package roles derives a linked account's access role from a member's
// rank label. The mapping is an ordered rule table over the folded
// label; keeping it as data keeps the coupling to the rank vocabulary
// in one reviewable place.
package roles

import (
	"strings"

	"github.com/baymark/rollcall/internal/app/system/normalize"
)

// Derived roles, in descending seniority.
const (
	DivisionDirector = "division_director"
	RegionStaff      = "region_staff"
	Moderator        = "moderator"
)

type rule struct {
	patterns []string
	role     string
}

// Rules are checked in order; the first pattern contained in the folded
// rank label wins. Labels that match nothing derive no role, and the
// account keeps whatever roles it already has.
var rules = []rule{
	{patterns: []string{"director", "diretor"}, role: DivisionDirector},
	{patterns: []string{"commander", "colonel", "major", "comandante", "coronel"}, role: RegionStaff},
	{patterns: []string{"captain", "lieutenant", "capitao", "tenente"}, role: Moderator},
}

// FromRankLabel returns the role derived from a rank label, or ""
// when no rule matches.
func FromRankLabel(label string) string {
	folded := normalize.Fold(label)
	if folded == "" {
		return ""
	}
	for _, r := range rules {
		for _, p := range r.patterns {
			if strings.Contains(folded, p) {
				return r.role
			}
		}
	}
	return ""
}
