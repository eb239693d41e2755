package store

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrForbidden       = errors.New("invalid room password")
	ErrInvalidPassword = errors.New("password cannot be used")
	ErrEmptyPatch      = errors.New("no fields to update")
)
