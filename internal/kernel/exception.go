package kernel

import (
	"context"
	"fmt"

	kerrors "github.com/conneroisu/thinkgo/internal/errors"
)

// ExceptionHandler receives errors and recovered panics that escape
// request handling. A handler named by app.exception_handle must be
// resolvable from the container and implement it.
type ExceptionHandler interface {
	Handle(ctx context.Context, err error)
}

// ExceptionService is the container service holding the default handler.
const ExceptionService = "exception"

// installExceptionHandler resolves app.exception_handle, falling back to
// the exception service.
func (a *App) installExceptionHandler() error {
	id := a.config.String("app.exception_handle", "")
	if id == "" {
		id = ExceptionService
	}

	instance, err := a.container.Make(id)
	if err != nil {
		return kerrors.Wrap(err, kerrors.ErrorTypeConfig, kerrors.ErrCodeConfigInvalid,
			"cannot resolve exception handler "+id)
	}
	h, ok := instance.(ExceptionHandler)
	if !ok {
		return kerrors.NewConfigError(kerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("exception handler %s has type %T, which cannot handle errors", id, instance), nil)
	}
	a.exception = h
	return nil
}

// ExceptionHandler returns the installed handler, or nil before Init.
func (a *App) ExceptionHandler() ExceptionHandler {
	return a.exception
}

// HandleError passes err to the installed handler.
func (a *App) HandleError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if a.exception == nil {
		a.logger.Error(ctx, err, "Unhandled error before exception handler installed")
		return
	}
	a.exception.Handle(ctx, err)
}

// Recover sends a panic to the exception handler. Use it deferred:
//
//	defer app.Recover(ctx)
func (a *App) Recover(ctx context.Context) {
	v := recover()
	if v == nil {
		return
	}
	err, ok := v.(error)
	if !ok {
		err = fmt.Errorf("%v", v)
	}
	a.HandleError(ctx, kerrors.NewInternalError(kerrors.ErrCodeInternalError, "panic recovered", err))
}
