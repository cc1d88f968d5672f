package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressIdentifier maps a provider's stable external ID (e.g. a Google
// place_id) to an address. One identifier per (provider, identifier) pair;
// re-seeing a known identifier repoints it at the current address.
type AddressIdentifier struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AddressID  primitive.ObjectID `bson:"address_id" json:"address_id"`
	Provider   string             `bson:"provider" json:"provider"`
	Identifier string             `bson:"identifier" json:"identifier"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// Normalize validates the record before upsert.
func (i *AddressIdentifier) Normalize() error {
	i.Provider = strings.TrimSpace(strings.ToLower(i.Provider))
	i.Identifier = strings.TrimSpace(i.Identifier)
	if i.Provider == "" || i.Identifier == "" {
		return errors.New("address identifier requires a provider and identifier")
	}
	if i.AddressID.IsZero() {
		return errors.New("address identifier requires an address")
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	return nil
}
