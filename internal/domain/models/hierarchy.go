// internal/domain/models/hierarchy.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Region is one entry of the region catalog. Regions sit above divisions
// in the organizational hierarchy.
type Region struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"` // lowercase, diacritics-stripped
	Status string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Division is one entry of the division catalog.
//
// Alias holds an alternative spelling of the name as it tends to appear
// in roster exports (abbreviations, ASCII-only renderings). The resolver
// matches against both NameCI and AliasCI.
type Division struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name     string              `bson:"name" json:"name"`
	NameCI   string              `bson:"name_ci" json:"name_ci"`
	Alias    string              `bson:"alias,omitempty" json:"alias,omitempty"`
	AliasCI  string              `bson:"alias_ci,omitempty" json:"alias_ci,omitempty"`
	RegionID *primitive.ObjectID `bson:"region_id,omitempty" json:"region_id,omitempty"`
	Status   string              `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Rank is one entry of the rank catalog. Grade groups ranks into the
// coarse bands used for role derivation and reporting.
type Rank struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"name_ci"`
	Grade  string             `bson:"grade,omitempty" json:"grade,omitempty"`
	Order  int                `bson:"order" json:"order"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
