package errors

import (
	"fmt"
)

type (
	InvalidAmountError struct {
		Msg string
	}
	ArithmeticOverflowError struct {
		Msg string
	}
	InsufficientUnqueuedSharesError struct {
		Available uint64
		Requested uint64
	}
	InsufficientBackstopBalanceError struct {
		Available uint64
		Requested uint64
	}
	NotMaturedError struct {
		Matured   uint64
		Requested uint64
	}
	EntryNotFoundError struct {
		Expiration int64
	}
	QueueFullError struct {
		Limit int
	}
)

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount: %s", e.Msg)
}

func (e *ArithmeticOverflowError) Error() string {
	return fmt.Sprintf("arithmetic overflow: %s", e.Msg)
}

func (e *InsufficientUnqueuedSharesError) Error() string {
	return fmt.Sprintf("insufficient unqueued shares: %v available, %v requested", e.Available, e.Requested)
}

func (e *InsufficientBackstopBalanceError) Error() string {
	return fmt.Sprintf("insufficient backstop balance: %v available, %v requested", e.Available, e.Requested)
}

func (e *NotMaturedError) Error() string {
	return fmt.Sprintf("not matured: %v matured, %v requested", e.Matured, e.Requested)
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("queue entry with expiration %v was not found or is too small", e.Expiration)
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("withdrawal queue is full, at most %v entries are allowed", e.Limit)
}
