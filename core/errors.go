package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a constructor or method receives
	// input that violates its contract.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDeliveryFailed is matched by every DeliveryError.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// DeliveryError records a sink that rejected an emit or flush.
type DeliveryError struct {
	// Sink names the sink, usually its Go type.
	Sink string

	// Op is "emit" or "flush".
	Op string

	// Err is the error reported by the sink.
	Err error
}

// NewDeliveryError wraps err for the given sink and operation.
func NewDeliveryError(sink any, op string, err error) *DeliveryError {
	return &DeliveryError{Sink: fmt.Sprintf("%T", sink), Op: op, Err: err}
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Sink, e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is makes every DeliveryError match ErrDeliveryFailed.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}
