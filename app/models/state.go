package models

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State represents a state/province owned by a Country. (name, country) and
// (code, country) are both unique.
type State struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Code      string             `bson:"code" json:"code"`
	CountryID primitive.ObjectID `bson:"country_id" json:"country_id"`
}

// Normalize trims the name, uppercases the code, and validates the
// invariants enforced before every save: non-blank name and code, and an
// owning country.
func (s *State) Normalize() error {
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	s.Name = strings.TrimSpace(s.Name)

	if s.Code == "" {
		return errors.New("state code cannot be blank")
	}
	if s.Name == "" {
		return errors.New("state name cannot be blank")
	}
	if s.CountryID.IsZero() {
		return errors.New("state requires an owning country")
	}
	return nil
}

// Label returns the state code, falling back to the name.
func (s *State) Label() string {
	if s.Code != "" {
		return s.Code
	}
	return s.Name
}
