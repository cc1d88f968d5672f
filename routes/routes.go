// Package routes mounts the HTTP endpoints.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/address-kit/app/controllers"
)

// SetupAllRoutes mounts every endpoint group on the engine.
func SetupAllRoutes(router *gin.Engine, address *controllers.AddressController, admin *controllers.AdminController) {
	router.GET("/health", admin.Health)

	v1 := router.Group("/api/v1")

	addresses := v1.Group("/addresses")
	{
		addresses.POST("/resolve", address.ResolveRaw)
		addresses.POST("/resolve-components", address.ResolveComponents)
		addresses.GET("/search", address.Search)
		addresses.GET("/:id", address.GetAddress)
		addresses.GET("/:id/provenance", address.GetProvenance)
		addresses.POST("/:id/renormalize", address.Renormalize)
	}

	ingest := v1.Group("/ingest")
	{
		ingest.POST("/batch", address.StartIngest)
		ingest.GET("/jobs/:id", address.GetJob)
	}

	adminGroup := v1.Group("/admin")
	{
		adminGroup.GET("/stats", admin.Stats)
		adminGroup.POST("/renormalize", admin.Renormalize)
		adminGroup.GET("/identifiers/:provider/:identifier", admin.LookupIdentifier)
		adminGroup.GET("/config", admin.Config)
	}
}
