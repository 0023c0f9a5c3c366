package service

import (
	"errors"
	"fmt"

	"tripmeter/internal/domain"
)

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = fmt.Errorf("%w: invalid trip id", domain.ErrInvalidArgument)

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = fmt.Errorf("%w: invalid driver id", domain.ErrInvalidArgument)

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = fmt.Errorf("%w: invalid location", domain.ErrInvalidArgument)

	// ErrInvalidPaymentAmount is returned when payment amount is invalid.
	ErrInvalidPaymentAmount = fmt.Errorf("%w: invalid payment amount", domain.ErrInvalidArgument)

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = fmt.Errorf("%w: invalid payment id", domain.ErrInvalidArgument)

	// ErrNilCallback is returned when a watcher is built without a callback.
	ErrNilCallback = fmt.Errorf("%w: nil callback", domain.ErrInvalidArgument)

	// ErrTripAlreadyTracked is returned when a trip already has a running tracker.
	ErrTripAlreadyTracked = fmt.Errorf("%w: trip already tracked", domain.ErrInvalidState)

	// ErrTripNotTracked is returned when stopping or reading a trip nobody tracks.
	ErrTripNotTracked = fmt.Errorf("%w: trip not tracked", domain.ErrInvalidState)

	// ErrWatcherClosed is returned when a closed RouteWatcher is used.
	ErrWatcherClosed = fmt.Errorf("%w: route watcher closed", domain.ErrInvalidState)

	// ErrSuperseded is returned to a place search whose results were
	// replaced by a newer query of the same session.
	ErrSuperseded = errors.New("search superseded by a newer query")
)
