package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/internal/service"
	apperrors "portfolio-messageboard/backend/pkg/errors"
)

// MessageController handles message-board API endpoints
type MessageController struct {
	messageService *service.MessageService
}

// NewMessageController creates a new message controller
func NewMessageController(messageService *service.MessageService) *MessageController {
	return &MessageController{messageService: messageService}
}

// RegisterRoutes registers the public and admin message routes under router.
// submitMiddleware runs only in front of the submission route.
func (c *MessageController) RegisterRoutes(router *gin.RouterGroup, submitMiddleware ...gin.HandlerFunc) {
	msgGroup := router.Group("/messages")
	{
		msgGroup.GET("", c.ListPublic)
		msgGroup.POST("", append(submitMiddleware, c.Submit)...)
	}

	adminGroup := router.Group("/admin/messages")
	{
		adminGroup.GET("", c.AdminList)
		adminGroup.GET("/:id", c.GetMessage)
		adminGroup.DELETE("/:id", c.DeleteMessage)
	}
}

// ListPublic returns public messages, newest first
func (c *MessageController) ListPublic(ctx *gin.Context) {
	msgs, err := c.messageService.ListPublic(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    msgs,
	})
}

// Submit validates and stores a new message
func (c *MessageController) Submit(ctx *gin.Context) {
	var request models.SubmitRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.Error(apperrors.NewError(http.StatusBadRequest, apperrors.CodeValidation, "invalid request format").
			WithDetails(map[string]string{"body": "request body must be a JSON object"}).
			WithCause(err))
		return
	}

	msg, err := c.messageService.Submit(ctx.Request.Context(), &request)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    msg,
	})
}

// AdminList returns every message, including private ones, with visibility counts
func (c *MessageController) AdminList(ctx *gin.Context) {
	listing, err := c.messageService.AdminList(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":      true,
		"data":         listing.Messages,
		"publicCount":  listing.PublicCount,
		"privateCount": listing.PrivateCount,
	})
}

// GetMessage returns one message by id
func (c *MessageController) GetMessage(ctx *gin.Context) {
	id, ok := messageID(ctx)
	if !ok {
		return
	}

	msg, err := c.messageService.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    msg,
	})
}

// DeleteMessage removes one message by id and returns it
func (c *MessageController) DeleteMessage(ctx *gin.Context) {
	id, ok := messageID(ctx)
	if !ok {
		return
	}

	msg, err := c.messageService.Delete(ctx.Request.Context(), id)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    msg,
	})
}

func messageID(ctx *gin.Context) (string, bool) {
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" {
		ctx.Error(apperrors.NewValidationError(map[string]string{"id": "message id is required"}))
		return "", false
	}
	return id, true
}
