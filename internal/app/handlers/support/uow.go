package support

import (
	"context"

	"rentloop/internal/app/uow"
)

// BeginReadOnlyUnit joins the ambient unit of work or starts a throwaway
// read-only one. The cleanup func is nil when the unit came from context.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := injectContext(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// BeginUnit joins the ambient unit of work or starts a managed one. The
// returned finish func must be called with the handler's outcome: a managed
// unit commits on nil and rolls back otherwise; an ambient unit is left to
// its owner (the transaction middleware).
func BeginUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(error) error, error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		finish := func(err error) error { return err }
		return unit, ctx, finish, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := injectContext(ctx, newUnit)
	finish := func(err error) error {
		if err != nil {
			_ = newUnit.Rollback(execCtx)
			return err
		}
		return newUnit.Commit(execCtx)
	}
	return newUnit, execCtx, finish, nil
}

func injectContext(ctx context.Context, unit uow.UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return uow.ContextWithUnitOfWork(ctx, unit)
}
