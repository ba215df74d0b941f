package ports

import (
	"context"

	"github.com/bmartins/futledger/internal/domain"
)

// PriceSource é uma fonte externa de cotações (site de price-check, fixture).
// Devolve um preço já validado ou uma falha; o core nunca consome nada além
// de um inteiro confiável.
type PriceSource interface {
	Lookup(ctx context.Context, subject string, platform domain.Platform) (int64, error)
}
