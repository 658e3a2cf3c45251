package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrRateLimited         = errors.New("rate limited")
	ErrPurchaseInFlight    = errors.New("purchase already in progress")
	ErrWalletNotConnected  = errors.New("wallet not connected")
	ErrUserDeclined        = errors.New("user declined wallet prompt")
	ErrUnknownNetwork      = errors.New("network unknown to wallet")
	ErrPartialDescriptor   = errors.New("partial network descriptor")
	ErrInvalidAmount       = errors.New("token amount must be positive")
	ErrProviderUnavailable = errors.New("wallet provider unreachable")
)
