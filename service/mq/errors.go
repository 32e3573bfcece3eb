package mq

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is a transient broker or network fault.
	ErrUnavailable = errors.New("broker unavailable")
	// ErrUnauthorized means the broker rejected the current credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLockLost means the broker reclaimed the message before settlement.
	ErrLockLost = errors.New("message lock lost")
	// ErrPoisoned marks a message the handler can never process.
	ErrPoisoned = errors.New("poisoned message")
	// ErrConfiguration marks missing or invalid configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(err error) error { return classify(ErrUnavailable, err) }

// Unauthorized wraps err so that errors.Is(err, ErrUnauthorized) holds.
func Unauthorized(err error) error { return classify(ErrUnauthorized, err) }

// LockLost wraps err so that errors.Is(err, ErrLockLost) holds.
func LockLost(err error) error { return classify(ErrLockLost, err) }

// Poison wraps err so that the consumer dead-letters the message.
func Poison(err error) error { return classify(ErrPoisoned, err) }

func classify(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// outcomeFor maps a handler result to the outcome the consumer acts on.
func outcomeFor(outcome Outcome, err error) Outcome {
	if err != nil {
		if errors.Is(err, ErrPoisoned) {
			return Poisoned
		}
		return Retryable
	}
	switch outcome {
	case Completed, Retryable, Poisoned:
		return outcome
	}
	return Retryable
}
