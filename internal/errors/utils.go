package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a KernelError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *KernelError {
	if err == nil {
		return nil
	}

	// Keep status, class and path of an existing KernelError so callers can
	// still classify the wrapped error.
	var ke *KernelError
	if errors.As(err, &ke) {
		return &KernelError{
			Type:    errType,
			Code:    code,
			Message: message,
			Status:  ke.Status,
			Class:   ke.Class,
			Path:    ke.Path,
			Cause:   ke,
			Context: ke.Context,
		}
	}

	return &KernelError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error for the given path
func WrapIO(err error, code, path string) *KernelError {
	ke := Wrap(err, ErrorTypeIO, code, "i/o failure")
	if ke != nil {
		ke.Path = path
	}
	return ke
}

// WrapConfig wraps an error as a configuration error for the given path
func WrapConfig(err error, code, path string) *KernelError {
	ke := Wrap(err, ErrorTypeConfig, code, "cannot load configuration")
	if ke != nil {
		ke.Path = path
	}
	return ke
}

// ExtractCause extracts the root cause from a wrapped error
func ExtractCause(err error) error {
	for err != nil {
		var ke *KernelError
		if !errors.As(err, &ke) {
			return err
		}
		if ke.Cause == nil {
			return ke
		}
		err = ke.Cause
	}
	return nil
}

// CombineErrors combines multiple errors into a single error with context
func CombineErrors(errs ...error) error {
	var nonNilErrs []error
	for _, err := range errs {
		if err != nil {
			nonNilErrs = append(nonNilErrs, err)
		}
	}
	if len(nonNilErrs) == 0 {
		return nil
	}
	if len(nonNilErrs) == 1 {
		return nonNilErrs[0]
	}

	var messages []string
	for _, err := range nonNilErrs {
		messages = append(messages, err.Error())
	}

	return &KernelError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %d errors", len(nonNilErrs)),
		Cause:   errors.Join(nonNilErrs...),
		Context: map[string]interface{}{
			"error_count": len(nonNilErrs),
			"errors":      messages,
		},
	}
}
