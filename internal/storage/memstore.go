package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/address-kit/app/models"
)

// MemStore is an in-memory Store used by tests and by the ingest CLI's
// dry-run mode. A single mutex guards all maps; ObjectIDs embed a timestamp
// so sorting by hex ID yields insertion order.
type MemStore struct {
	mu          sync.Mutex
	countries   map[string]*models.Country
	states      map[string]*models.State
	localities  map[string]*models.Locality
	addresses   map[string]*models.Address
	sources     map[string]*models.AddressSource
	identifiers map[string]*models.AddressIdentifier
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		countries:   make(map[string]*models.Country),
		states:      make(map[string]*models.State),
		localities:  make(map[string]*models.Locality),
		addresses:   make(map[string]*models.Address),
		sources:     make(map[string]*models.AddressSource),
		identifiers: make(map[string]*models.AddressIdentifier),
	}
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sortedKeys[M any](m map[string]M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Countries.

func (s *MemStore) FindCountryByCode(_ context.Context, code string) (*models.Country, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range sortedKeys(s.countries) {
		if c := s.countries[key]; foldEqual(c.Code, code) {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) FindCountryByName(_ context.Context, name string) (*models.Country, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range sortedKeys(s.countries) {
		if c := s.countries[key]; foldEqual(c.Name, name) {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetCountry(_ context.Context, id primitive.ObjectID) (*models.Country, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.countries[id.Hex()]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (s *MemStore) CreateCountry(_ context.Context, country *models.Country) (*models.Country, error) {
	if err := country.Normalize(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.countries {
		if country.Code != "" && foldEqual(existing.Code, country.Code) {
			return nil, fmt.Errorf("country code %q: %w", country.Code, ErrDuplicate)
		}
		if country.Name != "" && foldEqual(existing.Name, country.Name) {
			return nil, fmt.Errorf("country name %q: %w", country.Name, ErrDuplicate)
		}
	}
	stored := *country
	stored.ID = primitive.NewObjectID()
	s.countries[stored.ID.Hex()] = &stored
	out := stored
	return &out, nil
}

func (s *MemStore) UpdateCountry(_ context.Context, country *models.Country) error {
	if err := country.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.countries[country.ID.Hex()]; !ok {
		return fmt.Errorf("country %s not found", country.ID.Hex())
	}
	stored := *country
	s.countries[country.ID.Hex()] = &stored
	return nil
}

// States.

func (s *MemStore) FindStateByCode(_ context.Context, countryID primitive.ObjectID, code string) (*models.State, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range sortedKeys(s.states) {
		st := s.states[key]
		if st.CountryID == countryID && foldEqual(st.Code, code) {
			out := *st
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) FindStateByName(_ context.Context, countryID primitive.ObjectID, name string) (*models.State, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range sortedKeys(s.states) {
		st := s.states[key]
		if st.CountryID == countryID && foldEqual(st.Name, name) {
			out := *st
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetState(_ context.Context, id primitive.ObjectID) (*models.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id.Hex()]
	if !ok {
		return nil, nil
	}
	out := *st
	return &out, nil
}

func (s *MemStore) CreateState(_ context.Context, state *models.State) (*models.State, error) {
	if err := state.Normalize(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.states {
		if existing.CountryID != state.CountryID {
			continue
		}
		if foldEqual(existing.Code, state.Code) {
			return nil, fmt.Errorf("state code %q: %w", state.Code, ErrDuplicate)
		}
		if foldEqual(existing.Name, state.Name) {
			return nil, fmt.Errorf("state name %q: %w", state.Name, ErrDuplicate)
		}
	}
	stored := *state
	stored.ID = primitive.NewObjectID()
	s.states[stored.ID.Hex()] = &stored
	out := stored
	return &out, nil
}

// Localities.

func (s *MemStore) FindLocality(_ context.Context, stateID primitive.ObjectID, name, postalCode string) (*models.Locality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range sortedKeys(s.localities) {
		loc := s.localities[key]
		if loc.StateID == stateID && foldEqual(loc.Name, name) && foldEqual(loc.PostalCode, postalCode) {
			out := *loc
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetLocality(_ context.Context, id primitive.ObjectID) (*models.Locality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.localities[id.Hex()]
	if !ok {
		return nil, nil
	}
	out := *loc
	return &out, nil
}

func (s *MemStore) CreateLocality(_ context.Context, locality *models.Locality) (*models.Locality, error) {
	if err := locality.Normalize(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.localities {
		if existing.StateID == locality.StateID &&
			foldEqual(existing.Name, locality.Name) &&
			foldEqual(existing.PostalCode, locality.PostalCode) {
			return nil, fmt.Errorf("locality %q/%q: %w", locality.Name, locality.PostalCode, ErrDuplicate)
		}
	}
	stored := *locality
	stored.ID = primitive.NewObjectID()
	s.localities[stored.ID.Hex()] = &stored
	out := stored
	return &out, nil
}

func (s *MemStore) UpdateLocality(_ context.Context, locality *models.Locality) error {
	if err := locality.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.localities[locality.ID.Hex()]; !ok {
		return fmt.Errorf("locality %s not found", locality.ID.Hex())
	}
	stored := *locality
	s.localities[locality.ID.Hex()] = &stored
	return nil
}

// Addresses.

func (s *MemStore) FindAddress(_ context.Context, key AddressDedupKey) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sortedKeys(s.addresses) {
		addr := s.addresses[id]
		if addr.Raw == key.Raw &&
			addr.StreetNumber == key.StreetNumber &&
			addr.StreetName == key.StreetName &&
			addr.LocalityID == key.LocalityID {
			out := *addr
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) FindAddressByRaw(_ context.Context, raw string) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sortedKeys(s.addresses) {
		if addr := s.addresses[id]; addr.Raw == raw {
			out := *addr
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) GetAddress(_ context.Context, id primitive.ObjectID) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr, ok := s.addresses[id.Hex()]
	if !ok {
		return nil, nil
	}
	out := *addr
	return &out, nil
}

func (s *MemStore) CreateAddress(_ context.Context, address *models.Address) (*models.Address, error) {
	if err := address.Normalize(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.addresses {
		if existing.Raw == address.Raw &&
			existing.StreetNumber == address.StreetNumber &&
			existing.StreetName == address.StreetName &&
			existing.LocalityID == address.LocalityID {
			return nil, fmt.Errorf("address %q: %w", address.Raw, ErrDuplicate)
		}
	}
	stored := *address
	stored.ID = primitive.NewObjectID()
	s.addresses[stored.ID.Hex()] = &stored
	out := stored
	return &out, nil
}

func (s *MemStore) UpdateAddress(_ context.Context, address *models.Address) error {
	if err := address.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[address.ID.Hex()]; !ok {
		return fmt.Errorf("address %s not found", address.ID.Hex())
	}
	stored := *address
	s.addresses[address.ID.Hex()] = &stored
	return nil
}

func (s *MemStore) ListAddresses(_ context.Context, offset, limit int64) ([]*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := sortedKeys(s.addresses)
	if offset >= int64(len(keys)) {
		return nil, nil
	}
	keys = keys[offset:]
	if limit > 0 && limit < int64(len(keys)) {
		keys = keys[:limit]
	}
	out := make([]*models.Address, 0, len(keys))
	for _, id := range keys {
		addr := *s.addresses[id]
		out = append(out, &addr)
	}
	return out, nil
}

func (s *MemStore) CountAddresses(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.addresses)), nil
}

// Provenance.

func (s *MemStore) LatestSourceVersion(_ context.Context, addressID primitive.ObjectID, provider string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := 0
	for _, src := range s.sources {
		if src.AddressID == addressID && foldEqual(src.Provider, provider) && src.Version > latest {
			latest = src.Version
		}
	}
	return latest, nil
}

func (s *MemStore) InsertSource(_ context.Context, source *models.AddressSource) error {
	if err := source.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *source
	stored.ID = primitive.NewObjectID()
	s.sources[stored.ID.Hex()] = &stored
	source.ID = stored.ID
	return nil
}

func (s *MemStore) ListSources(_ context.Context, addressID primitive.ObjectID) ([]*models.AddressSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AddressSource
	for _, key := range sortedKeys(s.sources) {
		if src := s.sources[key]; src.AddressID == addressID {
			copied := *src
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

func (s *MemStore) PruneSources(_ context.Context, addressID primitive.ObjectID, provider string, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*models.AddressSource
	for _, src := range s.sources {
		if src.AddressID == addressID && foldEqual(src.Provider, provider) {
			matched = append(matched, src)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Version > matched[j].Version })
	if len(matched) <= keep {
		return 0, nil
	}
	removed := 0
	for _, src := range matched[keep:] {
		delete(s.sources, src.ID.Hex())
		removed++
	}
	return removed, nil
}

func (s *MemStore) UpsertIdentifier(_ context.Context, identifier *models.AddressIdentifier) error {
	if err := identifier.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.identifiers {
		if foldEqual(existing.Provider, identifier.Provider) && existing.Identifier == identifier.Identifier {
			existing.AddressID = identifier.AddressID
			identifier.ID = existing.ID
			return nil
		}
	}
	stored := *identifier
	stored.ID = primitive.NewObjectID()
	s.identifiers[stored.ID.Hex()] = &stored
	identifier.ID = stored.ID
	return nil
}

func (s *MemStore) FindIdentifier(_ context.Context, provider, identifier string) (*models.AddressIdentifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range sortedKeys(s.identifiers) {
		ident := s.identifiers[key]
		if foldEqual(ident.Provider, provider) && ident.Identifier == identifier {
			out := *ident
			return &out, nil
		}
	}
	return nil, nil
}

func (s *MemStore) ListIdentifiers(_ context.Context, addressID primitive.ObjectID) ([]*models.AddressIdentifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AddressIdentifier
	for _, key := range sortedKeys(s.identifiers) {
		if ident := s.identifiers[key]; ident.AddressID == addressID {
			copied := *ident
			out = append(out, &copied)
		}
	}
	return out, nil
}
