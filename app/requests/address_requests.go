// Package requests defines the HTTP request payloads.
package requests

// ResolveRawRequest carries a free-text address.
type ResolveRawRequest struct {
	Address string `json:"address" binding:"required"`
}

// ResolveComponentsRequest carries pre-structured components.
type ResolveComponentsRequest struct {
	StreetNumber    string   `json:"street_number"`
	StreetName      string   `json:"street_name"`
	Route           string   `json:"route"`
	StreetType      string   `json:"street_type"`
	StreetDirection string   `json:"street_direction"`
	UnitType        string   `json:"unit_type"`
	UnitNumber      string   `json:"unit_number"`
	Formatted       string   `json:"formatted"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	IsPOBox         *bool    `json:"is_po_box"`
	IsMilitary      *bool    `json:"is_military"`
	Locality        string   `json:"locality"`
	PostalCode      string   `json:"postal_code"`
	State           string   `json:"state"`
	StateCode       string   `json:"state_code"`
	Country         string   `json:"country"`
	CountryCode     string   `json:"country_code"`
	Provider        string   `json:"provider"`
}

// IngestBatchRequest carries legacy records for a background ingest job.
type IngestBatchRequest struct {
	Records []map[string]any `json:"records" binding:"required,min=1"`
}
