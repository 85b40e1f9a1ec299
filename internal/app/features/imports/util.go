// internal/app/features/imports/util.go
package imports

import (
	"strconv"

	"github.com/baymark/rollcall/internal/domain/models"
)

// refKey stringifies a reference for use as a Mongo map key.
func refKey(ref int64) string {
	return strconv.FormatInt(ref, 10)
}

// categoryRefs lists the references the delta holds in one category.
// Returns nil for an unknown category (distinct from an empty one).
func categoryRefs(d *models.DeltaResult, category string) []int64 {
	if d == nil {
		return nil
	}
	switch category {
	case models.CategoryNew:
		refs := make([]int64, 0, len(d.New))
		for _, row := range d.New {
			refs = append(refs, row.Ref)
		}
		return refs
	case models.CategoryUpdated:
		refs := make([]int64, 0, len(d.Updated))
		for _, ch := range d.Updated {
			refs = append(refs, ch.Before.Ref)
		}
		return refs
	case models.CategoryRemoved:
		refs := make([]int64, 0, len(d.Removed))
		for _, m := range d.Removed {
			refs = append(refs, m.Ref)
		}
		return refs
	case models.CategoryTransferred:
		refs := make([]int64, 0, len(d.Transferred))
		for _, tr := range d.Transferred {
			refs = append(refs, tr.Member.Ref)
		}
		return refs
	}
	return nil
}

// selectionSet returns a pointer to the batch's selection set for one
// category. The category must already be validated.
func selectionSet(b *models.ImportBatch, category string) *[]int64 {
	switch category {
	case models.CategoryNew:
		return &b.SelectedNew
	case models.CategoryUpdated:
		return &b.SelectedUpdated
	case models.CategoryRemoved:
		return &b.SelectedRemoved
	case models.CategoryTransferred:
		return &b.SelectedTransferred
	}
	return nil
}

func containsRef(refs []int64, ref int64) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}

// toggleRef adds or removes one reference, keeping the set free of
// duplicates.
func toggleRef(set []int64, ref int64, selected bool) []int64 {
	if selected {
		if containsRef(set, ref) {
			return set
		}
		return append(set, ref)
	}
	out := set[:0]
	for _, r := range set {
		if r != ref {
			out = append(out, r)
		}
	}
	return out
}
