package ports

import (
	"context"

	"github.com/bmartins/futledger/internal/domain"
)

// PositionBook persiste os pares compra/venda da carteira.
type PositionBook interface {
	// Open registra uma nova posição aberta (SellPrice ausente).
	Open(ctx context.Context, pos domain.TradePosition) error

	// LastOpen devolve a posição aberta mais recente do jogador, ou
	// domain.ErrNoOpenPosition quando não há compra em aberto.
	LastOpen(ctx context.Context, subject string) (domain.TradePosition, error)

	// Settle grava o fechamento de pos (SellPrice e NetProfit já
	// preenchidos) no lugar da linha aberta correspondente. Nenhuma outra
	// linha é alterada; em falha o store fica no último estado consistente.
	Settle(ctx context.Context, pos domain.TradePosition) error

	// Summary devolve o resumo da carteira com até recentClosed posições
	// fechadas recentes.
	Summary(ctx context.Context, recentClosed int) (domain.Portfolio, error)

	// Close libera os recursos do store.
	Close() error
}
