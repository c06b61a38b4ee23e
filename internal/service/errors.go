package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
)
