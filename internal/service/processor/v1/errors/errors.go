package errors

import (
	"fmt"
)

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	ServiceIllegalAccountNumber struct {
		Msg string
	}
	ServiceUnauthorizedAccount struct {
		Msg string
	}
	ServiceAmountOutOfRange struct {
		Msg string
	}
	ServiceTransferFailed struct {
		Err error
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *ServiceIllegalAccountNumber) Error() string {
	return e.Msg
}

func (e *ServiceUnauthorizedAccount) Error() string {
	return e.Msg
}

func (e *ServiceAmountOutOfRange) Error() string {
	return e.Msg
}

func (e *ServiceTransferFailed) Error() string {
	return fmt.Sprintf("%s: token transfer failed", e.Err.Error())
}
