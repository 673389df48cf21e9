package svc

import "errors"

// ErrStorageInitFailed wraps any failure opening the configured backends.
var ErrStorageInitFailed = errors.New("storage initialization failed")

// ErrFavoritesLoadFailed is returned when the persisted favorites cannot be read.
var ErrFavoritesLoadFailed = errors.New("favorites load failed")
