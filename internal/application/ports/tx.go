package ports

import (
	"context"

	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
)

// TxRepos repositorios atados a una misma transacción de almacenamiento.
type TxRepos struct {
	Records        repository.InventoryRecordRepository
	Transactions   repository.InventoryTransactionRepository
	Carts          repository.CartRepository
	Orders         repository.OrderRepository
	PurchaseOrders repository.PurchaseOrderRepository
}

// TxRunner ejecuta fn dentro de una transacción: Commit si fn devuelve nil, Rollback en
// cualquier otro caso (incluido ctx cancelado). Los bloqueos tomados con GetForUpdate se
// mantienen hasta el fin de la transacción.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos TxRepos) error) error
}
