package app

import "errors"

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrAlreadyReady = errors.New("cart already loaded")
)
