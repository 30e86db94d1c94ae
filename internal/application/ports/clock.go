package ports

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Clock fuente de tiempo inyectable para poder fijar fechas en tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reloj real en UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator genera identificadores de entidades.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator genera UUID v4.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.New().String() }

// TransactionIDGenerator genera el identificador legible de una venta.
type TransactionIDGenerator interface {
	NewTransactionID(now time.Time) string
}

const txnAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// TxnIDGenerator genera IDs con formato TXN-<unix ms>-<9 alfanuméricos en mayúscula>.
type TxnIDGenerator struct{}

func (TxnIDGenerator) NewTransactionID(now time.Time) string {
	suffix := make([]byte, 9)
	base := big.NewInt(int64(len(txnAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			suffix[i] = txnAlphabet[i]
			continue
		}
		suffix[i] = txnAlphabet[n.Int64()]
	}
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), suffix)
}
