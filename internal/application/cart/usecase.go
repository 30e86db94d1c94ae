package cart

import (
	"context"
	"strings"

	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/jhoicas/perecederos-pos/internal/domain"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/internal/domain/repository"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("perecederos-pos/cart")

// UseCase gestiona el carrito borrador de cada cajero. Todas las mutaciones se ejecutan
// dentro de una transacción que bloquea el carrito y recalculan el subtotal.
type UseCase struct {
	txRunner ports.TxRunner
	products repository.ProductRepository
	clock    ports.Clock
	ids      ports.IDGenerator
	log      *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner ports.TxRunner, products repository.ProductRepository, clock ports.Clock, ids ports.IDGenerator, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{txRunner: txRunner, products: products, clock: clock, ids: ids, log: log}
}

// GetOrCreate devuelve el carrito de (storeID, userID), creándolo vacío si no existe.
func (uc *UseCase) GetOrCreate(ctx context.Context, storeID, userID string) (*entity.Cart, error) {
	if err := validateOwner(storeID, userID); err != nil {
		return nil, err
	}
	var out *entity.Cart
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		c, err := uc.lockOrCreate(ctx, repos, storeID, userID)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddItem agrega quantity unidades del producto. Si ya está en el carrito fusiona la línea y
// valida el stock contra la cantidad combinada. El precio unitario se toma del producto ahora.
func (uc *UseCase) AddItem(ctx context.Context, storeID, userID, productID string, quantity decimal.Decimal) (*entity.Cart, error) {
	ctx, span := tracer.Start(ctx, "cart.add_item")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.String("store.id", storeID))

	if err := validateOwner(storeID, userID); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	product, err := uc.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return uc.mutate(ctx, storeID, userID, true, func(repos ports.TxRepos, c *entity.Cart) error {
		combined := c.QuantityOf(productID).Add(quantity)
		if err := checkStock(ctx, repos, productID, storeID, combined); err != nil {
			return err
		}
		line := entity.CartItem{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  combined,
			UnitPrice: product.Price,
			LineTotal: combined.Mul(product.Price),
		}
		if i := c.FindItem(productID); i >= 0 {
			c.Items[i] = line
		} else {
			c.Items = append(c.Items, line)
		}
		return nil
	})
}

// UpdateItemQuantity fija la cantidad absoluta de una línea existente.
func (uc *UseCase) UpdateItemQuantity(ctx context.Context, storeID, userID, productID string, quantity decimal.Decimal) (*entity.Cart, error) {
	if err := validateOwner(storeID, userID); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	return uc.mutate(ctx, storeID, userID, false, func(repos ports.TxRepos, c *entity.Cart) error {
		i := c.FindItem(productID)
		if i < 0 {
			return domain.ErrItemNotFound
		}
		product, err := uc.lookupProduct(ctx, productID)
		if err != nil {
			return err
		}
		if err := checkStock(ctx, repos, productID, storeID, quantity); err != nil {
			return err
		}
		c.Items[i].Quantity = quantity
		c.Items[i].UnitPrice = product.Price
		c.Items[i].LineTotal = quantity.Mul(product.Price)
		return nil
	})
}

// RemoveItem quita la línea del producto.
func (uc *UseCase) RemoveItem(ctx context.Context, storeID, userID, productID string) (*entity.Cart, error) {
	if err := validateOwner(storeID, userID); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, storeID, userID, false, func(_ ports.TxRepos, c *entity.Cart) error {
		i := c.FindItem(productID)
		if i < 0 {
			return domain.ErrItemNotFound
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
}

// Clear vacía el carrito sin eliminarlo.
func (uc *UseCase) Clear(ctx context.Context, storeID, userID string) (*entity.Cart, error) {
	if err := validateOwner(storeID, userID); err != nil {
		return nil, err
	}
	return uc.mutate(ctx, storeID, userID, false, func(_ ports.TxRepos, c *entity.Cart) error {
		c.Items = []entity.CartItem{}
		return nil
	})
}

// mutate bloquea el carrito, aplica fn, recalcula el subtotal, persiste y verifica que lo
// escrito cumpla subtotal == Σ lineTotal. create indica si un carrito ausente se crea.
func (uc *UseCase) mutate(ctx context.Context, storeID, userID string, create bool, fn func(ports.TxRepos, *entity.Cart) error) (*entity.Cart, error) {
	var out *entity.Cart
	err := uc.txRunner.Run(ctx, func(repos ports.TxRepos) error {
		var (
			c   *entity.Cart
			err error
		)
		if create {
			c, err = uc.lockOrCreate(ctx, repos, storeID, userID)
		} else {
			c, err = repos.Carts.GetForUpdate(ctx, storeID, userID)
		}
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrCartNotFound
		}

		if err := fn(repos, c); err != nil {
			return err
		}
		c.Subtotal = c.ComputeSubtotal()
		c.UpdatedAt = uc.clock.Now()
		if err := repos.Carts.Save(ctx, c); err != nil {
			return err
		}

		stored, err := repos.Carts.Get(ctx, storeID, userID)
		if err != nil {
			return err
		}
		if stored == nil || !stored.Subtotal.Equal(stored.ComputeSubtotal()) {
			var actual decimal.Decimal
			if stored != nil {
				actual = stored.Subtotal
			}
			return domain.NewIntegrityError(domain.ErrCartIntegrity, "subtotal tras escritura", c.ComputeSubtotal(), actual)
		}
		out = stored
		return nil
	})
	if err != nil {
		zl := uc.log.WithContext(ctx)
		e := zl.Debug()
		if domain.IsIntegrityViolation(err) {
			e = zl.Error()
		}
		e.Err(err).Str("store_id", storeID).Str("user_id", userID).Msg("cart mutation failed")
		return nil, err
	}
	return out, nil
}

func (uc *UseCase) lockOrCreate(ctx context.Context, repos ports.TxRepos, storeID, userID string) (*entity.Cart, error) {
	c, err := repos.Carts.GetForUpdate(ctx, storeID, userID)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	now := uc.clock.Now()
	c = &entity.Cart{
		ID:        uc.ids.NewID(),
		StoreID:   storeID,
		UserID:    userID,
		Items:     []entity.CartItem{},
		Subtotal:  decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.Carts.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *UseCase) lookupProduct(ctx context.Context, productID string) (*entity.Product, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrInvalidInput
	}
	p, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

// checkStock lectura fresca del inventario dentro de la transacción del carrito.
func checkStock(ctx context.Context, repos ports.TxRepos, productID, storeID string, want decimal.Decimal) error {
	rec, err := repos.Records.Get(ctx, productID, storeID)
	if err != nil {
		return err
	}
	available := rec.TotalQuantity()
	if available.LessThan(want) {
		return domain.NewInsufficientStock(productID, storeID, available, want)
	}
	return nil
}

func validateOwner(storeID, userID string) error {
	if strings.TrimSpace(storeID) == "" || strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidInput
	}
	return nil
}

func validateQuantity(q decimal.Decimal) error {
	if q.LessThan(decimal.NewFromInt(1)) {
		return domain.ErrInvalidQuantity
	}
	return nil
}
