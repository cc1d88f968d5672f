package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/address-kit/app/models"
)

// ErrDuplicate is returned by Create* methods when a unique constraint is
// violated. Callers treat it as a lost race and re-run the lookup.
var ErrDuplicate = errors.New("duplicate key")

// AddressDedupKey identifies an address for deduplication: raw input plus
// the structured street fields and locality.
type AddressDedupKey struct {
	Raw          string
	StreetNumber string
	StreetName   string
	LocalityID   primitive.ObjectID
}

// Store is the persistence boundary for the address hierarchy and provenance
// records. All name and code lookups are case-insensitive. Find* methods
// return (nil, nil) when nothing matches; when several records match they
// return the oldest by ID so repeated lookups are stable.
type Store interface {
	// Countries.
	FindCountryByCode(ctx context.Context, code string) (*models.Country, error)
	FindCountryByName(ctx context.Context, name string) (*models.Country, error)
	GetCountry(ctx context.Context, id primitive.ObjectID) (*models.Country, error)
	CreateCountry(ctx context.Context, country *models.Country) (*models.Country, error)
	UpdateCountry(ctx context.Context, country *models.Country) error

	// States, always scoped to an owning country.
	FindStateByCode(ctx context.Context, countryID primitive.ObjectID, code string) (*models.State, error)
	FindStateByName(ctx context.Context, countryID primitive.ObjectID, name string) (*models.State, error)
	GetState(ctx context.Context, id primitive.ObjectID) (*models.State, error)
	CreateState(ctx context.Context, state *models.State) (*models.State, error)

	// Localities, always scoped to an owning state.
	FindLocality(ctx context.Context, stateID primitive.ObjectID, name, postalCode string) (*models.Locality, error)
	GetLocality(ctx context.Context, id primitive.ObjectID) (*models.Locality, error)
	CreateLocality(ctx context.Context, locality *models.Locality) (*models.Locality, error)
	UpdateLocality(ctx context.Context, locality *models.Locality) error

	// Addresses.
	FindAddress(ctx context.Context, key AddressDedupKey) (*models.Address, error)
	FindAddressByRaw(ctx context.Context, raw string) (*models.Address, error)
	GetAddress(ctx context.Context, id primitive.ObjectID) (*models.Address, error)
	CreateAddress(ctx context.Context, address *models.Address) (*models.Address, error)
	UpdateAddress(ctx context.Context, address *models.Address) error
	ListAddresses(ctx context.Context, offset, limit int64) ([]*models.Address, error)
	CountAddresses(ctx context.Context) (int64, error)

	// Provenance.
	LatestSourceVersion(ctx context.Context, addressID primitive.ObjectID, provider string) (int, error)
	InsertSource(ctx context.Context, source *models.AddressSource) error
	ListSources(ctx context.Context, addressID primitive.ObjectID) ([]*models.AddressSource, error)
	PruneSources(ctx context.Context, addressID primitive.ObjectID, provider string, keep int) (int, error)
	UpsertIdentifier(ctx context.Context, identifier *models.AddressIdentifier) error
	FindIdentifier(ctx context.Context, provider, identifier string) (*models.AddressIdentifier, error)
	ListIdentifiers(ctx context.Context, addressID primitive.ObjectID) ([]*models.AddressIdentifier, error)
}
