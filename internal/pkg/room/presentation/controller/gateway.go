package controller

import (
	"encoding/json"

	"go-jukebox/internal/infrastructure/realtime"
	"go-jukebox/internal/pkg/room/application/engine"

	"github.com/rs/zerolog/log"
)

type outboundFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data"`
}

// Gateway delivers engine events over the realtime router as JSON frames.
type Gateway struct {
	router *realtime.Router
}

func NewGateway(router *realtime.Router) *Gateway {
	return &Gateway{router: router}
}

var _ engine.Gateway = (*Gateway)(nil)

func (g *Gateway) Bind(roomID, connID string) { g.router.Bind(roomID, connID) }

func (g *Gateway) Unbind(roomID, connID string) { g.router.Unbind(roomID, connID) }

func (g *Gateway) Unicast(connID string, ev engine.Event) {
	if payload, ok := encode(ev); ok {
		g.router.Send(connID, payload)
	}
}

func (g *Gateway) Broadcast(roomID string, ev engine.Event, excludeConnID string) {
	if payload, ok := encode(ev); ok {
		g.router.Broadcast(roomID, payload, excludeConnID)
	}
}

func encode(ev engine.Event) ([]byte, bool) {
	payload, err := json.Marshal(outboundFrame{Type: ev.Type, RoomID: ev.RoomID, Data: ev.Data})
	if err != nil {
		log.Error().Str("module", "room.gateway").Str("event", ev.Type).Err(err).Msg("encode frame")
		return nil, false
	}
	return payload, true
}
