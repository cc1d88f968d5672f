package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-kit/app/config"
	"github.com/address-kit/app/responses"
	"github.com/address-kit/app/services"
)

// AdminController exposes maintenance and introspection endpoints.
type AdminController struct {
	admin  *services.AdminService
	cfg    *config.Config
	logger *zap.Logger
}

// NewAdminController wires the controller.
func NewAdminController(admin *services.AdminService, cfg *config.Config, logger *zap.Logger) *AdminController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminController{admin: admin, cfg: cfg, logger: logger}
}

// Health handles GET /health.
func (ctl *AdminController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats handles GET /api/v1/admin/stats.
func (ctl *AdminController) Stats(c *gin.Context) {
	stats, err := ctl.admin.Stats(c.Request.Context())
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, err)
		return
	}
	responses.OK(c, stats)
}

// Renormalize handles POST /api/v1/admin/renormalize.
func (ctl *AdminController) Renormalize(c *gin.Context) {
	processed, err := ctl.admin.RenormalizeAll(c.Request.Context())
	if err != nil {
		ctl.logger.Error("Renormalize sweep failed", zap.Int("processed", processed), zap.Error(err))
		responses.Error(c, http.StatusInternalServerError, err)
		return
	}
	responses.OK(c, gin.H{"processed": processed})
}

// LookupIdentifier handles GET /api/v1/admin/identifiers/:provider/:identifier.
func (ctl *AdminController) LookupIdentifier(c *gin.Context) {
	detail, err := ctl.admin.LookupIdentifier(c.Request.Context(), c.Param("provider"), c.Param("identifier"))
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, err)
		return
	}
	if detail == nil {
		responses.ErrorMessage(c, http.StatusNotFound, "identifier not found")
		return
	}
	responses.OK(c, responses.AddressPayload(detail))
}

// Config handles GET /api/v1/admin/config, rendering the effective
// configuration with secrets redacted.
func (ctl *AdminController) Config(c *gin.Context) {
	rendered, err := ctl.cfg.YAML()
	if err != nil {
		responses.Error(c, http.StatusInternalServerError, err)
		return
	}
	c.String(http.StatusOK, rendered)
}
