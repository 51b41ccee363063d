package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barpos-api/services"
)

// UpdateStockRequest carries a signed stock adjustment
type UpdateStockRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// Validate accepts any adjustment; the service clamps the result at zero
func (r UpdateStockRequest) Validate() error {
	return nil
}

// UpdateProductStock handles PATCH /api/v1/products/:id/stock
func UpdateProductStock(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req UpdateStockRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := services.GetProductService().UpdateStock(requestContext(c), id, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}
