package http

import (
	"go-jukebox/internal/infrastructure/auth"
	"go-jukebox/internal/infrastructure/realtime"
	"go-jukebox/internal/pkg/room/application/engine"
	"go-jukebox/internal/pkg/room/application/usecase"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"
	"go-jukebox/internal/pkg/room/presentation/controller"

	"github.com/gin-gonic/gin"
)

// Dependencies are the shared collaborators of the room endpoints.
type Dependencies struct {
	Rooms       repository.RoomRepository
	Messages    repository.MessageRepository
	Engine      *engine.Engine
	Router      *realtime.Router
	Auth        *auth.Authenticator
	ChatBacklog int
}

// RegisterRoutes registers room endpoints under g. Every route requires a token.
func RegisterRoutes(g *gin.RouterGroup, d Dependencies) {
	createCtl := controller.NewCreateRoomController(usecase.NewCreateRoomUseCase(d.Rooms))
	stateCtl := controller.NewRoomStateController(usecase.NewGetRoomStateUseCase(d.Rooms, d.Engine))
	historyCtl := controller.NewChatHistoryController(usecase.NewGetChatHistoryUseCase(d.Rooms, d.Messages))
	socketCtl := controller.NewRoomSocketController(
		d.Router,
		d.Engine,
		usecase.NewJoinRoomUseCase(d.Rooms, d.Messages, d.Engine, d.ChatBacklog),
		usecase.NewSendChatMessageUseCase(d.Messages, d.Engine),
	)

	rooms := g.Group("/rooms", auth.RequireAuth(d.Auth))

	// POST /api/v1/rooms -> create a room hosted by the caller
	rooms.POST("", createCtl.Handle())

	// GET /api/v1/rooms/ws -> websocket endpoint for room sync
	rooms.GET("/ws", socketCtl.Handle())

	// GET /api/v1/rooms/:roomId/state -> current playback state
	rooms.GET("/:roomId/state", stateCtl.Handle())

	// GET /api/v1/rooms/:roomId/messages -> chat history
	rooms.GET("/:roomId/messages", historyCtl.Handle())
}
