// Package errors provides custom errors for types implementing the share and room Processor interfaces.
package errors

import (
	"fmt"
)

type (
	ServiceFoundNilStorage struct {
		Msg string
	}
	ServiceFoundNilSecretary struct {
		Msg string
	}
	InvalidCodeError struct {
		Code string
	}
	CodeSpaceExhaustedError struct {
		Attempts int
	}
)

func (e *ServiceFoundNilStorage) Error() string {
	return e.Msg
}

func (e *ServiceFoundNilSecretary) Error() string {
	return e.Msg
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s: not a valid sharing code", e.Code)
}

func (e *CodeSpaceExhaustedError) Error() string {
	return fmt.Sprintf("could not allocate a free code in %d attempts", e.Attempts)
}
