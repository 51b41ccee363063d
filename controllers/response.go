package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/barpos-api/middleware"
	"github.com/kendall-kelly/barpos-api/services"
	"github.com/kendall-kelly/barpos-api/utils"
	"go.uber.org/zap"
)

// PaginationMeta is attached to every list response
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func newPaginationMeta(p services.Pagination, total int64) PaginationMeta {
	limit := int64(p.Limit)
	return PaginationMeta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondList(c *gin.Context, data interface{}, p services.Pagination, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       data,
		"pagination": newPaginationMeta(p, total),
	})
}

func respondErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondError maps domain errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	var (
		notFound     *services.NotFoundError
		conflict     *services.ConflictError
		badRequest   *services.BadRequestError
		unauthorized *services.UnauthorizedError
		queryErr     *utils.QueryError
	)

	switch {
	case errors.As(err, &notFound):
		respondErrorCode(c, http.StatusNotFound, notFound.Code, notFound.Message)
	case errors.As(err, &conflict):
		respondErrorCode(c, http.StatusConflict, conflict.Code, conflict.Message)
	case errors.As(err, &badRequest):
		respondErrorCode(c, http.StatusBadRequest, badRequest.Code, badRequest.Message)
	case errors.As(err, &unauthorized):
		respondErrorCode(c, http.StatusUnauthorized, unauthorized.Code, unauthorized.Message)
	case errors.As(err, &queryErr):
		respondErrorCode(c, http.StatusBadRequest, queryErr.Code, queryErr.Message)
	default:
		zap.L().Named("http").Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		_ = c.Error(err)
		respondErrorCode(c, http.StatusInternalServerError, "DATABASE_ERROR", "An unexpected error occurred")
	}
}

// bindJSON binds the body and runs the payload's own checks
func bindJSON(c *gin.Context, dst interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondValidationError(c, err)
		return false
	}
	if err := dst.Validate(); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// pathUUID reads a UUID path parameter
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_ID", name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryPagination(c *gin.Context) services.Pagination {
	page, limit := utils.ParsePage(c.Query("page"), c.Query("limit"), services.DefaultLimit, services.MaxLimit)
	return services.Pagination{Page: page, Limit: limit}
}

// requestContext carries the caller's username into the services for audit records
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if username := middleware.GetUsername(c); username != "" {
		ctx = services.WithActor(ctx, username)
	}
	return ctx
}
