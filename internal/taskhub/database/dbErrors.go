package database

import "github.com/go-faster/errors"

var (
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrUserNotExist     = errors.New("user not exist")
	ErrUnknownDriver    = errors.New("unknown storage driver")
)
