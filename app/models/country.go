package models

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Country represents a country with name and ISO code. Identity is by name
// or code; at least one must be present.
type Country struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
	Code string             `bson:"code" json:"code"`
}

// Normalize trims fields and validates that the record is addressable.
func (c *Country) Normalize() error {
	c.Name = strings.TrimSpace(c.Name)
	c.Code = strings.TrimSpace(c.Code)

	if c.Name == "" && c.Code == "" {
		return errors.New("country requires a name or a code")
	}
	return nil
}

func (c *Country) String() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Code
}
