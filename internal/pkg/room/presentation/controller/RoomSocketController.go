package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go-jukebox/internal/infrastructure/auth"
	"go-jukebox/internal/infrastructure/metrics"
	"go-jukebox/internal/infrastructure/realtime"
	room "go-jukebox/internal/pkg/room/application/domain"
	"go-jukebox/internal/pkg/room/application/engine"
	"go-jukebox/internal/pkg/room/application/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// RoomSocketController serves the room websocket: one connection, at most one
// room at a time.
type RoomSocketController struct {
	router          *realtime.Router
	engine          *engine.Engine
	joinRoomUC      *usecase.JoinRoomUseCase
	sendChatUC      *usecase.SendChatMessageUseCase
	inflightTimeout time.Duration
}

func NewRoomSocketController(router *realtime.Router, eng *engine.Engine, join *usecase.JoinRoomUseCase, chat *usecase.SendChatMessageUseCase) *RoomSocketController {
	return &RoomSocketController{
		router:          router,
		engine:          eng,
		joinRoomUC:      join,
		sendChatUC:      chat,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// browsers on other origins authenticate with ?token=
		return true
	},
}

type inboundFrame struct {
	Type        string   `json:"type"`
	RoomID      string   `json:"roomId"`
	TrackID     string   `json:"trackId,omitempty"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
	Position    *float64 `json:"position,omitempty"`
	Volume      *int     `json:"volume,omitempty"`
	Autoplay    *bool    `json:"autoplay,omitempty"`
	Message     string   `json:"message,omitempty"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Command string `json:"command,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type connectedFrame struct {
	Type string `json:"type"`
	Data struct {
		ConnectionID string `json:"connectionId"`
		UserID       string `json:"userId"`
	} `json:"data"`
}

const (
	defaultReadTimeout = 60 * time.Second
	maxFrameSize       = 64 << 10
)

// socketSession is the per-connection state owned by the read loop.
type socketSession struct {
	conn   *realtime.Connection
	joined *room.ParticipantSession
}

// Handle upgrades the request and processes frames until the client disconnects.
// Must be mounted behind auth.RequireAuth.
func (ctl *RoomSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		sess := &socketSession{conn: conn}
		logger := log.With().Str("module", "room.socket").Str("conn", conn.ID).Str("user", userID).Logger()
		logger.Debug().Msg("connected")

		defer func() {
			ctl.leave(sess)
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
			logger.Debug().Msg("disconnected")
		}()

		ws.SetReadLimit(maxFrameSize)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		hello := connectedFrame{Type: "connected"}
		hello.Data.ConnectionID = conn.ID
		hello.Data.UserID = userID
		if payload, err := json.Marshal(hello); err == nil {
			_ = conn.Send(payload)
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
					!errors.Is(err, websocket.ErrCloseSent) {
					logger.Debug().Err(err).Msg("read failed")
				}
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, codeBadRequest, "invalid payload", frame)
				continue
			}
			ctl.handleFrame(c.Request.Context(), sess, frame)
		}
	}
}

func (ctl *RoomSocketController) handleFrame(parent context.Context, sess *socketSession, frame inboundFrame) {
	typ := room.CommandType(frame.Type)
	if !typ.Known() {
		metrics.CommandsTotal.WithLabelValues("unknown", "unsupported").Inc()
		ctl.replyError(sess.conn, codeUnsupportedType, "unknown frame type", frame)
		return
	}
	if frame.RoomID == "" {
		ctl.fail(sess.conn, frame, room.ErrInvalidCommand)
		return
	}

	ctx, cancel := context.WithTimeout(parent, ctl.inflightTimeout)
	defer cancel()

	var err error
	switch typ {
	case room.CommandJoin:
		err = ctl.handleJoin(ctx, sess, frame)
	case room.CommandLeave:
		err = ctl.handleLeave(ctx, sess, frame)
	case room.CommandChatMessage:
		err = ctl.handleChat(ctx, sess, frame)
	default:
		err = ctl.handleCommand(ctx, sess, frame)
	}
	if err != nil {
		ctl.fail(sess.conn, frame, err)
		return
	}
	metrics.CommandsTotal.WithLabelValues(frame.Type, "ok").Inc()
}

func (ctl *RoomSocketController) handleJoin(ctx context.Context, sess *socketSession, frame inboundFrame) error {
	if sess.joined != nil && sess.joined.RoomID != frame.RoomID {
		ctl.leave(sess)
	}
	s, err := ctl.joinRoomUC.Execute(ctx, usecase.JoinRoomInput{
		RoomID:       frame.RoomID,
		UserID:       sess.conn.UserID,
		ConnectionID: sess.conn.ID,
	})
	if err != nil {
		return err
	}
	sess.joined = &s
	return nil
}

func (ctl *RoomSocketController) handleLeave(ctx context.Context, sess *socketSession, frame inboundFrame) error {
	if sess.joined == nil || sess.joined.RoomID != frame.RoomID {
		return room.ErrNotJoined
	}
	err := ctl.engine.Leave(ctx, *sess.joined)
	sess.joined = nil
	return err
}

func (ctl *RoomSocketController) handleChat(ctx context.Context, sess *socketSession, frame inboundFrame) error {
	if sess.joined == nil {
		return room.ErrNotJoined
	}
	_, err := ctl.sendChatUC.Execute(ctx, usecase.SendChatMessageInput{
		Session: *sess.joined,
		RoomID:  frame.RoomID,
		Body:    frame.Message,
	})
	return err
}

func (ctl *RoomSocketController) handleCommand(ctx context.Context, sess *socketSession, frame inboundFrame) error {
	if sess.joined == nil || sess.joined.RoomID != frame.RoomID {
		return room.ErrNotJoined
	}
	position := frame.CurrentTime
	if position == nil {
		position = frame.Position
	}
	return ctl.engine.Dispatch(ctx, *sess.joined, room.Command{
		Type:     room.CommandType(frame.Type),
		RoomID:   frame.RoomID,
		TrackID:  frame.TrackID,
		Position: position,
		Volume:   frame.Volume,
		Autoplay: frame.Autoplay,
	})
}

// leave runs on disconnect and on room switch; the request context may already be gone.
func (ctl *RoomSocketController) leave(sess *socketSession) {
	if sess.joined == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ctl.inflightTimeout)
	defer cancel()
	if err := ctl.engine.Leave(ctx, *sess.joined); err != nil {
		log.Warn().Str("module", "room.socket").Str("room", sess.joined.RoomID).Str("conn", sess.conn.ID).Err(err).Msg("leave failed")
	}
	sess.joined = nil
}

func (ctl *RoomSocketController) fail(conn *realtime.Connection, frame inboundFrame, err error) {
	code := errorCode(err)
	result := "error"
	if code == codeForbidden {
		result = "denied"
	}
	metrics.CommandsTotal.WithLabelValues(frame.Type, result).Inc()
	if code == codeInternal {
		log.Error().Str("module", "room.socket").Str("conn", conn.ID).Str("command", frame.Type).Err(err).Msg("command failed")
	}
	ctl.replyError(conn, code, errorMessage(err), frame)
}

func (ctl *RoomSocketController) replyError(conn *realtime.Connection, code string, message string, frame inboundFrame) {
	out := errorFrame{
		Type:    engine.EventError,
		Code:    code,
		Error:   message,
		Command: frame.Type,
		RoomID:  frame.RoomID,
	}
	if payload, err := json.Marshal(out); err == nil {
		_ = conn.Send(payload)
	}
}
