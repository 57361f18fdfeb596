package errors

import "fmt"

var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrRoomAlreadyExists  = fmt.Errorf("room already exists")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrAlreadyMember      = fmt.Errorf("user already in room")
	ErrEmptyMemberList    = fmt.Errorf("room has no valid members")
	ErrAlreadyConnected   = fmt.Errorf("user already connected")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrEmptyWordList      = fmt.Errorf("no censored words have been found")
	ErrNotClockedIn       = fmt.Errorf("user is not clocked in")
	ErrAlreadyClockedIn   = fmt.Errorf("user is already clocked in")
)
