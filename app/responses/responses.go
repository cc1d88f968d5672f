// Package responses defines the HTTP response envelopes.
package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/address-kit/app/models"
	"github.com/address-kit/internal/formatter"
)

// OK writes a 200 with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Accepted writes a 202 with data, used for background jobs.
func Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, gin.H{"data": data})
}

// Error writes an error envelope.
func Error(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// ErrorMessage writes an error envelope from a plain message.
func ErrorMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// AddressPayload flattens a resolved address plus its display renderings.
func AddressPayload(detail *models.AddressDetail) map[string]any {
	payload := detail.AsDict()
	payload["id"] = detail.Address.ID.Hex()
	payload["display"] = formatter.DisplayString(detail, "default")
	payload["display_compact"] = formatter.DisplayString(detail, "compact")
	return payload
}
