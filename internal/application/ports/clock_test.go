package ports_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/jhoicas/perecederos-pos/internal/application/ports"
	"github.com/stretchr/testify/assert"
)

func TestTxnIDGenerator_Formato(t *testing.T) {
	now := time.UnixMilli(1767225600123)
	gen := ports.TxnIDGenerator{}

	id := gen.NewTransactionID(now)

	assert.Regexp(t, regexp.MustCompile(`^TXN-1767225600123-[A-Z0-9]{9}$`), id)
	assert.NotEqual(t, id, gen.NewTransactionID(now), "dos IDs en el mismo milisegundo no deberían coincidir")
}

func TestUUIDGenerator_Unicos(t *testing.T) {
	gen := ports.UUIDGenerator{}
	assert.NotEqual(t, gen.NewID(), gen.NewID())
	assert.Len(t, gen.NewID(), 36)
}
