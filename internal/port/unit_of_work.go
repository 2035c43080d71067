package port

import "context"

// UnitOfWork exposes transaction-scoped stores. All operations performed
// through it commit or roll back together.
type UnitOfWork interface {
	Inventory() InventoryStore
	Orders() OrderStore
}

// TxManager runs fn inside a single atomic unit of work. Any error returned
// by fn rolls everything back; nothing partial is ever observable.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
