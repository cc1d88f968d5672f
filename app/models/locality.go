package models

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Locality represents a city/locality owned by a State. The composite
// (name, postal_code, state) is unique: the same city name may repeat under
// different states, and the same postal code may repeat under different city
// names within a state.
type Locality struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	PostalCode string             `bson:"postal_code" json:"postal_code"`
	StateID    primitive.ObjectID `bson:"state_id" json:"state_id"`
}

// Normalize trims fields and validates the owning state reference.
func (l *Locality) Normalize() error {
	l.Name = strings.TrimSpace(l.Name)
	l.PostalCode = strings.TrimSpace(l.PostalCode)

	if l.StateID.IsZero() {
		return errors.New("locality requires an owning state")
	}
	return nil
}
