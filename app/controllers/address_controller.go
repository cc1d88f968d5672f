package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-kit/app/requests"
	"github.com/address-kit/app/responses"
	"github.com/address-kit/app/services"
	"github.com/address-kit/internal/geocode"
	"github.com/address-kit/internal/ingest"
)

// AddressController exposes the resolution pipeline over HTTP.
type AddressController struct {
	service *services.AddressService
	logger  *zap.Logger
}

// NewAddressController wires the controller.
func NewAddressController(service *services.AddressService, logger *zap.Logger) *AddressController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AddressController{service: service, logger: logger}
}

// ResolveRaw handles POST /api/v1/addresses/resolve.
func (ctl *AddressController) ResolveRaw(c *gin.Context) {
	var req requests.ResolveRawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, err)
		return
	}

	detail, err := ctl.service.ResolveRaw(c.Request.Context(), req.Address)
	if err != nil {
		ctl.logger.Error("Resolve raw failed", zap.String("address", req.Address), zap.Error(err))
		responses.Error(c, http.StatusUnprocessableEntity, err)
		return
	}
	responses.OK(c, responses.AddressPayload(detail))
}

// ResolveComponents handles POST /api/v1/addresses/resolve-components.
func (ctl *AddressController) ResolveComponents(c *gin.Context) {
	var req requests.ResolveComponentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, err)
		return
	}

	comps := &geocode.Components{
		StreetNumber:    req.StreetNumber,
		StreetName:      req.StreetName,
		Route:           req.Route,
		StreetType:      req.StreetType,
		StreetDirection: req.StreetDirection,
		UnitType:        req.UnitType,
		UnitNumber:      req.UnitNumber,
		Formatted:       req.Formatted,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		IsPOBox:         req.IsPOBox,
		IsMilitary:      req.IsMilitary,
		Provider:        req.Provider,
		Location: geocode.Location{
			Locality:    req.Locality,
			PostalCode:  req.PostalCode,
			State:       req.State,
			StateCode:   req.StateCode,
			Country:     req.Country,
			CountryCode: req.CountryCode,
		},
	}

	detail, err := ctl.service.ResolveComponents(c.Request.Context(), comps)
	if err != nil {
		ctl.logger.Error("Resolve components failed", zap.Error(err))
		responses.Error(c, http.StatusUnprocessableEntity, err)
		return
	}
	responses.OK(c, responses.AddressPayload(detail))
}

// GetAddress handles GET /api/v1/addresses/:id.
func (ctl *AddressController) GetAddress(c *gin.Context) {
	detail, err := ctl.service.GetAddress(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, err)
		return
	}
	if detail == nil {
		responses.ErrorMessage(c, http.StatusNotFound, "address not found")
		return
	}
	responses.OK(c, responses.AddressPayload(detail))
}

// Renormalize handles POST /api/v1/addresses/:id/renormalize.
func (ctl *AddressController) Renormalize(c *gin.Context) {
	detail, err := ctl.service.Renormalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.Error(c, http.StatusUnprocessableEntity, err)
		return
	}
	responses.OK(c, responses.AddressPayload(detail))
}

// GetProvenance handles GET /api/v1/addresses/:id/provenance.
func (ctl *AddressController) GetProvenance(c *gin.Context) {
	sources, identifiers, err := ctl.service.Provenance(c.Request.Context(), c.Param("id"))
	if err != nil {
		responses.Error(c, http.StatusBadRequest, err)
		return
	}
	responses.OK(c, gin.H{"sources": sources, "identifiers": identifiers})
}

// Search handles GET /api/v1/addresses/search?q=...&limit=...
func (ctl *AddressController) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		responses.ErrorMessage(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

	hits, err := ctl.service.Search(query, limit)
	if err != nil {
		if err == services.ErrSearchDisabled {
			responses.Error(c, http.StatusServiceUnavailable, err)
			return
		}
		responses.Error(c, http.StatusInternalServerError, err)
		return
	}
	responses.OK(c, hits)
}

// StartIngest handles POST /api/v1/ingest/batch.
func (ctl *AddressController) StartIngest(c *gin.Context) {
	var req requests.IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.Error(c, http.StatusBadRequest, err)
		return
	}

	records := make([]ingest.Record, 0, len(req.Records))
	for _, record := range req.Records {
		records = append(records, ingest.Record(record))
	}
	job := ctl.service.StartIngestJob(records)
	responses.Accepted(c, job)
}

// GetJob handles GET /api/v1/ingest/jobs/:id.
func (ctl *AddressController) GetJob(c *gin.Context) {
	job, ok := ctl.service.GetJob(c.Param("id"))
	if !ok {
		responses.ErrorMessage(c, http.StatusNotFound, "job not found")
		return
	}
	responses.OK(c, job)
}
