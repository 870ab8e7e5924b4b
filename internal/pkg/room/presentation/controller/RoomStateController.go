package controller

import (
	"context"
	"net/http"
	"time"

	"go-jukebox/internal/pkg/room/application/usecase"

	"github.com/gin-gonic/gin"
)

// RoomStateController handles GET /rooms/:roomId/state.
type RoomStateController struct {
	UC *usecase.GetRoomStateUseCase
}

func NewRoomStateController(uc *usecase.GetRoomStateUseCase) *RoomStateController {
	return &RoomStateController{UC: uc}
}

func (h *RoomStateController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		view, err := h.UC.Execute(ctx, c.Param("roomId"))
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": errorMessage(err)})
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
