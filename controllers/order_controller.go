package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barpos-api/models"
	"github.com/kendall-kelly/barpos-api/services"
	"github.com/kendall-kelly/barpos-api/utils"
)

// CreateOrder handles POST /api/v1/orders
func CreateOrder(c *gin.Context) {
	var req services.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}

	order, err := services.GetOrderService().Create(requestContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, order)
}

func parseOrderFilter(c *gin.Context) (services.OrderFilter, error) {
	var (
		f   services.OrderFilter
		err error
	)
	if f.TableID, err = utils.ParseUUID("tableId", c.Query("tableId")); err != nil {
		return f, err
	}
	if f.ClientID, err = utils.ParseUUID("clientId", c.Query("clientId")); err != nil {
		return f, err
	}
	if raw := c.Query("status"); raw != "" {
		status := models.OrderStatus(raw)
		if !status.IsValid() {
			return f, &services.BadRequestError{Code: "INVALID_STATUS", Message: "status must be one of: pending, processing, completed, cancelled"}
		}
		f.Status = &status
	}
	if f.IsActive, err = utils.ParseBool("isActive", c.Query("isActive")); err != nil {
		return f, err
	}
	if f.CreatedFrom, err = utils.ParseDate("createdFrom", c.Query("createdFrom"), false); err != nil {
		return f, err
	}
	if f.CreatedTo, err = utils.ParseDate("createdTo", c.Query("createdTo"), true); err != nil {
		return f, err
	}
	return f, nil
}

// ListOrders handles GET /api/v1/orders
func ListOrders(c *gin.Context) {
	filter, err := parseOrderFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page := queryPagination(c)

	orders, total, err := services.GetOrderService().List(requestContext(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, orders, page, total)
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetByID(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// UpdateOrder handles PATCH /api/v1/orders/:id
func UpdateOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateOrderInput
	if !bindJSON(c, &req) {
		return
	}

	order, err := services.GetOrderService().Update(requestContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func DeleteOrder(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := services.GetOrderService().Remove(requestContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddOrderItem handles POST /api/v1/orders/:id/items
func AddOrderItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.LineItemInput
	if !bindJSON(c, &req) {
		return
	}

	order, err := services.GetOrderService().AddItem(requestContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, order)
}

// UpdateOrderItem handles PATCH /api/v1/orders/:id/items/:itemId
func UpdateOrderItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "itemId")
	if !ok {
		return
	}
	var req services.UpdateLineItemInput
	if !bindJSON(c, &req) {
		return
	}

	order, err := services.GetOrderService().UpdateItem(requestContext(c), id, itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// DeleteOrderItem handles DELETE /api/v1/orders/:id/items/:itemId
func DeleteOrderItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "itemId")
	if !ok {
		return
	}

	order, err := services.GetOrderService().RemoveItem(requestContext(c), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// GetOrderReceipt handles GET /api/v1/orders/:id/receipt
func GetOrderReceipt(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	url, err := services.GetOrderService().ReceiptURL(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"url": url})
}

// GetOrderHistory handles GET /api/v1/orders/:id/history
func GetOrderHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page := queryPagination(c)

	entries, err := services.GetOrderService().History(requestContext(c), id, int64(page.Limit))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*services.AuditEntry{}
	}
	respondData(c, http.StatusOK, entries)
}
