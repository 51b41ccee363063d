package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barpos-api/services"
)

// CreateSongRequest handles POST /api/v1/song-requests
func CreateSongRequest(c *gin.Context) {
	var req services.CreateSongRequestInput
	if !bindJSON(c, &req) {
		return
	}

	song, err := services.GetSongRequestService().Create(requestContext(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, song)
}

// ListTableSongRequests handles GET /api/v1/tables/:id/song-requests
func ListTableSongRequests(c *gin.Context) {
	tableID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	songs, err := services.GetSongRequestService().ListActiveByTable(requestContext(c), tableID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, songs)
}

// MarkSongRequestPlayed handles PATCH /api/v1/song-requests/:id/played
func MarkSongRequestPlayed(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	song, err := services.GetSongRequestService().MarkPlayed(requestContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, song)
}

// DeleteSongRequest handles DELETE /api/v1/song-requests/:id
func DeleteSongRequest(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := services.GetSongRequestService().Remove(requestContext(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeactivateTableSongRequests handles PATCH /api/v1/tables/:id/song-requests/deactivate
func DeactivateTableSongRequests(c *gin.Context) {
	tableID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	count, err := services.GetSongRequestService().DeactivateAllByTable(requestContext(c), tableID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deactivated": count})
}
