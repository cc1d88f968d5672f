package storage

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/address-kit/app/models"
)

const (
	collCountries   = "countries"
	collStates      = "states"
	collLocalities  = "localities"
	collAddresses   = "addresses"
	collSources     = "address_sources"
	collIdentifiers = "address_identifiers"
)

// caseInsensitive makes lookups and unique indexes ignore case (collation
// strength 2 also ignores diacritics).
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// MongoStore persists the hierarchy and provenance records in MongoDB.
// Uniqueness is enforced by indexes; Create* methods translate duplicate-key
// failures into ErrDuplicate so callers can re-run the lookup.
type MongoStore struct {
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoStore wraps a connected database.
func NewMongoStore(db *mongo.Database, logger *zap.Logger) *MongoStore {
	return &MongoStore{db: db, logger: logger}
}

// indexSpecs defines the unique indexes backing find-or-create. Country code
// and name are each optional, so their indexes are partial: a blank value must
// not collide with another blank value.
func indexSpecs() map[string][]mongo.IndexModel {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true).SetCollation(caseInsensitive),
		}
	}
	uniqueNonBlank := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(caseInsensitive).
				SetPartialFilterExpression(bson.M{field: bson.M{"$gt": ""}}),
		}
	}

	return map[string][]mongo.IndexModel{
		collCountries: {
			uniqueNonBlank("code"),
			uniqueNonBlank("name"),
		},
		collStates: {
			unique(bson.D{{Key: "country_id", Value: 1}, {Key: "code", Value: 1}}),
			unique(bson.D{{Key: "country_id", Value: 1}, {Key: "name", Value: 1}}),
		},
		collLocalities: {
			unique(bson.D{{Key: "state_id", Value: 1}, {Key: "name", Value: 1}, {Key: "postal_code", Value: 1}}),
		},
		collAddresses: {
			unique(bson.D{
				{Key: "raw", Value: 1},
				{Key: "street_number", Value: 1},
				{Key: "street_name", Value: 1},
				{Key: "locality_id", Value: 1},
			}),
		},
		collSources: {
			unique(bson.D{{Key: "address_id", Value: 1}, {Key: "provider", Value: 1}, {Key: "version", Value: 1}}),
		},
		collIdentifiers: {
			unique(bson.D{{Key: "provider", Value: 1}, {Key: "identifier", Value: 1}}),
		},
	}
}

// EnsureIndexes creates the unique indexes backing find-or-create. Safe to
// call on every startup; Mongo ignores existing identical indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for coll, idx := range indexSpecs() {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes for %s: %w", coll, err)
		}
		s.logger.Debug("Ensured indexes", zap.String("collection", coll), zap.Int("count", len(idx)))
	}
	return nil
}

func translateWriteErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%v: %w", err, ErrDuplicate)
	}
	return err
}

// findOne decodes a single document, mapping ErrNoDocuments to (nil, nil).
func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOneOptions) (*T, error) {
	var out T
	err := coll.FindOne(ctx, filter, opts...).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// firstMatch is findOne with case-insensitive collation and stable
// oldest-first ordering.
func firstMatch[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) (*T, error) {
	opts := options.FindOne().
		SetCollation(caseInsensitive).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	return findOne[T](ctx, coll, filter, opts)
}

// Countries.

func (s *MongoStore) FindCountryByCode(ctx context.Context, code string) (*models.Country, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	return firstMatch[models.Country](ctx, s.db.Collection(collCountries), bson.M{"code": strings.TrimSpace(code)})
}

func (s *MongoStore) FindCountryByName(ctx context.Context, name string) (*models.Country, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	return firstMatch[models.Country](ctx, s.db.Collection(collCountries), bson.M{"name": strings.TrimSpace(name)})
}

func (s *MongoStore) GetCountry(ctx context.Context, id primitive.ObjectID) (*models.Country, error) {
	return findOne[models.Country](ctx, s.db.Collection(collCountries), bson.M{"_id": id})
}

func (s *MongoStore) CreateCountry(ctx context.Context, country *models.Country) (*models.Country, error) {
	if err := country.Normalize(); err != nil {
		return nil, err
	}
	country.ID = primitive.NewObjectID()
	if _, err := s.db.Collection(collCountries).InsertOne(ctx, country); err != nil {
		return nil, translateWriteErr(err)
	}
	return country, nil
}

func (s *MongoStore) UpdateCountry(ctx context.Context, country *models.Country) error {
	if err := country.Normalize(); err != nil {
		return err
	}
	_, err := s.db.Collection(collCountries).ReplaceOne(ctx, bson.M{"_id": country.ID}, country)
	return translateWriteErr(err)
}

// States.

func (s *MongoStore) FindStateByCode(ctx context.Context, countryID primitive.ObjectID, code string) (*models.State, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	filter := bson.M{"country_id": countryID, "code": strings.TrimSpace(code)}
	return firstMatch[models.State](ctx, s.db.Collection(collStates), filter)
}

func (s *MongoStore) FindStateByName(ctx context.Context, countryID primitive.ObjectID, name string) (*models.State, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	filter := bson.M{"country_id": countryID, "name": strings.TrimSpace(name)}
	return firstMatch[models.State](ctx, s.db.Collection(collStates), filter)
}

func (s *MongoStore) GetState(ctx context.Context, id primitive.ObjectID) (*models.State, error) {
	return findOne[models.State](ctx, s.db.Collection(collStates), bson.M{"_id": id})
}

func (s *MongoStore) CreateState(ctx context.Context, state *models.State) (*models.State, error) {
	if err := state.Normalize(); err != nil {
		return nil, err
	}
	state.ID = primitive.NewObjectID()
	if _, err := s.db.Collection(collStates).InsertOne(ctx, state); err != nil {
		return nil, translateWriteErr(err)
	}
	return state, nil
}

// Localities.

func (s *MongoStore) FindLocality(ctx context.Context, stateID primitive.ObjectID, name, postalCode string) (*models.Locality, error) {
	filter := bson.M{
		"state_id":    stateID,
		"name":        strings.TrimSpace(name),
		"postal_code": strings.TrimSpace(postalCode),
	}
	return firstMatch[models.Locality](ctx, s.db.Collection(collLocalities), filter)
}

func (s *MongoStore) GetLocality(ctx context.Context, id primitive.ObjectID) (*models.Locality, error) {
	return findOne[models.Locality](ctx, s.db.Collection(collLocalities), bson.M{"_id": id})
}

func (s *MongoStore) CreateLocality(ctx context.Context, locality *models.Locality) (*models.Locality, error) {
	if err := locality.Normalize(); err != nil {
		return nil, err
	}
	locality.ID = primitive.NewObjectID()
	if _, err := s.db.Collection(collLocalities).InsertOne(ctx, locality); err != nil {
		return nil, translateWriteErr(err)
	}
	return locality, nil
}

func (s *MongoStore) UpdateLocality(ctx context.Context, locality *models.Locality) error {
	if err := locality.Normalize(); err != nil {
		return err
	}
	_, err := s.db.Collection(collLocalities).ReplaceOne(ctx, bson.M{"_id": locality.ID}, locality)
	return translateWriteErr(err)
}

// Addresses.

func (s *MongoStore) FindAddress(ctx context.Context, key AddressDedupKey) (*models.Address, error) {
	filter := bson.M{
		"raw":           key.Raw,
		"street_number": key.StreetNumber,
		"street_name":   key.StreetName,
		"locality_id":   key.LocalityID,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findOne[models.Address](ctx, s.db.Collection(collAddresses), filter, opts)
}

func (s *MongoStore) FindAddressByRaw(ctx context.Context, raw string) (*models.Address, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findOne[models.Address](ctx, s.db.Collection(collAddresses), bson.M{"raw": raw}, opts)
}

func (s *MongoStore) GetAddress(ctx context.Context, id primitive.ObjectID) (*models.Address, error) {
	return findOne[models.Address](ctx, s.db.Collection(collAddresses), bson.M{"_id": id})
}

func (s *MongoStore) CreateAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	if err := address.Normalize(); err != nil {
		return nil, err
	}
	address.ID = primitive.NewObjectID()
	if _, err := s.db.Collection(collAddresses).InsertOne(ctx, address); err != nil {
		return nil, translateWriteErr(err)
	}
	return address, nil
}

func (s *MongoStore) UpdateAddress(ctx context.Context, address *models.Address) error {
	if err := address.Normalize(); err != nil {
		return err
	}
	_, err := s.db.Collection(collAddresses).ReplaceOne(ctx, bson.M{"_id": address.ID}, address)
	return translateWriteErr(err)
}

func (s *MongoStore) ListAddresses(ctx context.Context, offset, limit int64) ([]*models.Address, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.db.Collection(collAddresses).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*models.Address
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) CountAddresses(ctx context.Context) (int64, error) {
	return s.db.Collection(collAddresses).CountDocuments(ctx, bson.M{})
}

// Provenance.

func (s *MongoStore) LatestSourceVersion(ctx context.Context, addressID primitive.ObjectID, provider string) (int, error) {
	filter := bson.M{"address_id": addressID, "provider": strings.ToLower(provider)}
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	latest, err := findOne[models.AddressSource](ctx, s.db.Collection(collSources), filter, opts)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 0, nil
	}
	return latest.Version, nil
}

func (s *MongoStore) InsertSource(ctx context.Context, source *models.AddressSource) error {
	if err := source.Normalize(); err != nil {
		return err
	}
	source.ID = primitive.NewObjectID()
	_, err := s.db.Collection(collSources).InsertOne(ctx, source)
	return translateWriteErr(err)
}

func (s *MongoStore) ListSources(ctx context.Context, addressID primitive.ObjectID) ([]*models.AddressSource, error) {
	opts := options.Find().SetSort(bson.D{{Key: "provider", Value: 1}, {Key: "version", Value: -1}})
	cursor, err := s.db.Collection(collSources).Find(ctx, bson.M{"address_id": addressID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*models.AddressSource
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) PruneSources(ctx context.Context, addressID primitive.ObjectID, provider string, keep int) (int, error) {
	filter := bson.M{"address_id": addressID, "provider": strings.ToLower(provider)}
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}}).SetSkip(int64(keep))
	cursor, err := s.db.Collection(collSources).Find(ctx, filter, opts)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var stale []models.AddressSource
	if err := cursor.All(ctx, &stale); err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, 0, len(stale))
	for _, src := range stale {
		ids = append(ids, src.ID)
	}
	result, err := s.db.Collection(collSources).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return int(result.DeletedCount), nil
}

func (s *MongoStore) UpsertIdentifier(ctx context.Context, identifier *models.AddressIdentifier) error {
	if err := identifier.Normalize(); err != nil {
		return err
	}
	filter := bson.M{"provider": identifier.Provider, "identifier": identifier.Identifier}
	update := bson.M{
		"$set":         bson.M{"address_id": identifier.AddressID},
		"$setOnInsert": bson.M{"created_at": identifier.CreatedAt},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(collIdentifiers).UpdateOne(ctx, filter, update, opts)
	return translateWriteErr(err)
}

func (s *MongoStore) FindIdentifier(ctx context.Context, provider, identifier string) (*models.AddressIdentifier, error) {
	filter := bson.M{"provider": strings.ToLower(provider), "identifier": identifier}
	return findOne[models.AddressIdentifier](ctx, s.db.Collection(collIdentifiers), filter)
}

func (s *MongoStore) ListIdentifiers(ctx context.Context, addressID primitive.ObjectID) ([]*models.AddressIdentifier, error) {
	cursor, err := s.db.Collection(collIdentifiers).Find(ctx, bson.M{"address_id": addressID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*models.AddressIdentifier
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
