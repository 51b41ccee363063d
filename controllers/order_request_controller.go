package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barpos-api/services"
	"github.com/kendall-kelly/barpos-api/utils"
)

// CreateOrderRequest handles POST /api/v1/order-requests
func CreateOrderRequest(c *gin.Context) {
	var req services.CreateOrderRequestInput
	if !bindJSON(c, &req) {
		return
	}

	request, err := services.GetOrderRequestService().Create(requestContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, request)
}

func parseOrderRequestFilter(c *gin.Context) (services.OrderRequestFilter, error) {
	var (
		f   services.OrderRequestFilter
		err error
	)
	if f.TableID, err = utils.ParseUUID("tableId", c.Query("tableId")); err != nil {
		return f, err
	}
	if f.ClientID, err = utils.ParseUUID("clientId", c.Query("clientId")); err != nil {
		return f, err
	}
	if f.IsCompleted, err = utils.ParseBool("isCompleted", c.Query("isCompleted")); err != nil {
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

// ListOrderRequests handles GET /api/v1/order-requests
func ListOrderRequests(c *gin.Context) {
	filter, err := parseOrderRequestFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page := queryPagination(c)

	requests, total, err := services.GetOrderRequestService().List(requestContext(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, requests, page, total)
}

// GetOrderRequest handles GET /api/v1/order-requests/:id
func GetOrderRequest(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	request, err := services.GetOrderRequestService().GetByID(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, request)
}

// UpdateOrderRequest handles PATCH /api/v1/order-requests/:id
func UpdateOrderRequest(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateOrderRequestInput
	if !bindJSON(c, &req) {
		return
	}

	request, err := services.GetOrderRequestService().Update(requestContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, request)
}

// CompleteOrderRequest handles PATCH /api/v1/order-requests/:id/complete
func CompleteOrderRequest(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	request, err := services.GetOrderRequestService().Complete(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, request)
}

// AcceptOrderRequest handles POST /api/v1/order-requests/:id/accept and returns the created order
func AcceptOrderRequest(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	result, err := services.GetOrderRequestService().Accept(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, result)
}

// DeleteOrderRequest handles DELETE /api/v1/order-requests/:id
func DeleteOrderRequest(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := services.GetOrderRequestService().Remove(requestContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddOrderRequestItem handles POST /api/v1/order-requests/:id/items
func AddOrderRequestItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req services.LineItemInput
	if !bindJSON(c, &req) {
		return
	}

	request, err := services.GetOrderRequestService().AddItem(requestContext(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, request)
}

// UpdateOrderRequestItem handles PATCH /api/v1/order-requests/:id/items/:itemId
func UpdateOrderRequestItem(c *gin.Context) {
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

	request, err := services.GetOrderRequestService().UpdateItem(requestContext(c), id, itemID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, request)
}

// DeleteOrderRequestItem handles DELETE /api/v1/order-requests/:id/items/:itemId
func DeleteOrderRequestItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "itemId")
	if !ok {
		return
	}

	request, err := services.GetOrderRequestService().RemoveItem(requestContext(c), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, request)
}

// GetOrderRequestHistory handles GET /api/v1/order-requests/:id/history
func GetOrderRequestHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	page := queryPagination(c)

	entries, err := services.GetOrderRequestService().History(requestContext(c), id, int64(page.Limit))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*services.AuditEntry{}
	}
	respondData(c, http.StatusOK, entries)
}
