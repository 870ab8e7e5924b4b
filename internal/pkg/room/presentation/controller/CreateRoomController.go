package controller

import (
	"context"
	"net/http"
	"time"

	"go-jukebox/internal/infrastructure/auth"
	"go-jukebox/internal/pkg/room/application/usecase"

	"github.com/gin-gonic/gin"
)

// CreateRoomController handles POST /rooms. The authenticated caller becomes the host.
type CreateRoomController struct {
	UC *usecase.CreateRoomUseCase
}

func NewCreateRoomController(uc *usecase.CreateRoomUseCase) *CreateRoomController {
	return &CreateRoomController{UC: uc}
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (h *CreateRoomController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRoomRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		r, err := h.UC.Execute(ctx, usecase.CreateRoomInput{Name: req.Name, HostID: auth.UserID(c)})
		if err != nil {
			c.JSON(httpStatus(err), gin.H{"error": errorMessage(err)})
			return
		}
		c.JSON(http.StatusCreated, r)
	}
}
