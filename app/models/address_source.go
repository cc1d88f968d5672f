package models

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressSource is one provenance record: the payload a provider returned for
// an address at a point in time. Versions count up per (address, provider)
// and only the most recent few are retained.
type AddressSource struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AddressID            primitive.ObjectID `bson:"address_id" json:"address_id"`
	Provider             string             `bson:"provider" json:"provider"`
	Version              int                `bson:"version" json:"version"`
	RawPayload           map[string]any     `bson:"raw_payload" json:"raw_payload"`
	NormalizedComponents map[string]any     `bson:"normalized_components" json:"normalized_components"`
	Metadata             map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
}

// Normalize validates the record before insert.
func (s *AddressSource) Normalize() error {
	s.Provider = strings.TrimSpace(strings.ToLower(s.Provider))
	if s.Provider == "" {
		return errors.New("address source requires a provider")
	}
	if s.AddressID.IsZero() {
		return errors.New("address source requires an address")
	}
	if s.Version < 1 {
		return errors.New("address source version must be positive")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}
