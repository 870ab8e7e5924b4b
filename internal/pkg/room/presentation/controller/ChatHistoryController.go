package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go-jukebox/internal/pkg/room/application/usecase"

	"github.com/gin-gonic/gin"
)

// ChatHistoryController handles GET /rooms/:roomId/messages?limit=&before=.
// before is an RFC 3339 timestamp; pages run backwards from it.
type ChatHistoryController struct {
	UC *usecase.GetChatHistoryUseCase
}

func NewChatHistoryController(uc *usecase.GetChatHistoryUseCase) *ChatHistoryController {
	return &ChatHistoryController{UC: uc}
}

func (h *ChatHistoryController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		in := usecase.GetChatHistoryInput{RoomID: c.Param("roomId")}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			in.Limit = n
		}
		if v := c.Query("before"); v != "" {
			ts, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
				return
			}
			in.Before = ts
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		msgs, err := h.UC.Execute(ctx, in)
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": errorMessage(err)})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"messages": msgs,
			"count":    len(msgs),
		})
	}
}
