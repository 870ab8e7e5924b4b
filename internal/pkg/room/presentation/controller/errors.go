package controller

import (
	"errors"
	"net/http"

	room "go-jukebox/internal/pkg/room/application/domain"
	"go-jukebox/internal/pkg/room/application/usecase"
)

// Error codes carried by websocket error frames.
const (
	codeForbidden       = "forbidden"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codeBadRequest      = "bad_request"
	codeInternal        = "internal_error"
	codeUnsupportedType = "unsupported_type"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrNotHost),
		errors.Is(err, room.ErrForbidden),
		errors.Is(err, room.ErrNotJoined):
		return codeForbidden
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrTrackNotQueued),
		errors.Is(err, room.ErrNoTrack),
		errors.Is(err, room.ErrRoomNotActive):
		return codeNotFound
	case errors.Is(err, room.ErrDuplicateTrack):
		return codeConflict
	case errors.Is(err, room.ErrInvalidCommand),
		errors.Is(err, room.ErrInvalidVolume),
		errors.Is(err, room.ErrInvalidPosition),
		errors.Is(err, room.ErrEmptyMessage),
		errors.Is(err, room.ErrMessageTooLong):
		return codeBadRequest
	default:
		return codeInternal
	}
}

// errorMessage hides infrastructure details from clients.
func errorMessage(err error) string {
	if errorCode(err) == codeInternal {
		if errors.Is(err, usecase.ErrPersistence) {
			return "unexpected persistence error"
		}
		return "internal error"
	}
	return err.Error()
}

func httpStatus(err error) int {
	switch errorCode(err) {
	case codeForbidden:
		return http.StatusForbidden
	case codeNotFound:
		return http.StatusNotFound
	case codeConflict:
		return http.StatusConflict
	case codeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
