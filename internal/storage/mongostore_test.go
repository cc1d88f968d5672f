package storage

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexSpecsAreUniqueAndCaseInsensitive(t *testing.T) {
	for coll, models := range indexSpecs() {
		if len(models) == 0 {
			t.Errorf("collection %s has no indexes", coll)
		}
		for i, model := range models {
			opts := model.Options
			if opts == nil || opts.Unique == nil || !*opts.Unique {
				t.Errorf("%s index %d is not unique", coll, i)
				continue
			}
			if opts.Collation == nil || opts.Collation.Strength != 2 {
				t.Errorf("%s index %d is not case-insensitive", coll, i)
			}
		}
	}
}

// Country code and name are each optional, so a blank value on one record
// must not block another record that is also blank there. The indexes have
// to be partial for that.
func TestCountryIndexesSkipBlankValues(t *testing.T) {
	countries := indexSpecs()[collCountries]
	if len(countries) != 2 {
		t.Fatalf("countries has %d indexes, want 2", len(countries))
	}

	for i, model := range countries {
		filter, ok := model.Options.PartialFilterExpression.(bson.M)
		if !ok {
			t.Errorf("countries index %d has no partial filter", i)
			continue
		}
		keys, ok := model.Keys.(bson.D)
		if !ok || len(keys) != 1 {
			t.Fatalf("countries index %d has unexpected keys %v", i, model.Keys)
		}
		field := keys[0].Key
		cond, ok := filter[field].(bson.M)
		if !ok || cond["$gt"] != "" {
			t.Errorf("countries index %d filter = %v, want {%s: {$gt: \"\"}}", i, filter, field)
		}
	}
}
