package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barpos-api/services"
	"github.com/kendall-kelly/barpos-api/utils"
)

// ChangeTableOccupation handles PATCH /api/v1/tables/:id/occupation?isOccupied=bool
func ChangeTableOccupation(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	occupied, err := utils.ParseBool("isOccupied", c.Query("isOccupied"))
	if err != nil {
		respondError(c, err)
		return
	}
	if occupied == nil {
		respondErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "isOccupied is required")
		return
	}

	table, err := services.GetTableService().ChangeOccupiedStatus(requestContext(c), id, *occupied)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, table)
}

// GetTableDetail handles GET /api/v1/tables/:id/detail
func GetTableDetail(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	detail, err := services.GetTableService().GetDetail(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, detail)
}
