// Package tracker mantém a carteira de posições compra/venda e calcula o
// lucro realizado, líquido da taxa do mercado.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/bmartins/futledger/internal/domain"
	"github.com/bmartins/futledger/internal/ports"
	"github.com/google/uuid"
)

type Tracker struct {
	book         ports.PositionBook
	feeRate      float64
	recentClosed int
	now          func() time.Time
}

// New cria um tracker com a taxa do mercado e o limite de posições fechadas
// mostradas no resumo.
func New(book ports.PositionBook, feeRate float64, recentClosed int) *Tracker {
	if feeRate <= 0 {
		feeRate = domain.DefaultFeeRate
	}
	if recentClosed <= 0 {
		recentClosed = 5
	}
	return &Tracker{book: book, feeRate: feeRate, recentClosed: recentClosed, now: time.Now}
}

// FeeRate devolve a taxa configurada.
func (t *Tracker) FeeRate() float64 { return t.feeRate }

// OpenPosition registra uma compra. Sempre sucede (só exige preço não
// negativo, validado pela camada de entrada).
func (t *Tracker) OpenPosition(ctx context.Context, subject string, buyPrice int64, platform domain.Platform) (domain.TradePosition, error) {
	pos := domain.TradePosition{
		ID:       uuid.New().String(),
		OpenedAt: t.now().UTC().Truncate(time.Second),
		Subject:  domain.NormalizeSubject(subject),
		BuyPrice: buyPrice,
		Platform: platform,
	}
	if err := t.book.Open(ctx, pos); err != nil {
		return domain.TradePosition{}, fmt.Errorf("tracker.OpenPosition: %w", err)
	}
	return pos, nil
}

// ClosePosition fecha a compra em aberto mais recente do jogador e devolve a
// posição fechada junto com o detalhamento financeiro. A busca é só por nome:
// a plataforma não participa do casamento compra/venda de propósito, então a
// operação nem a recebe. Sem compra em aberto, devolve
// domain.ErrNoOpenPosition e não altera nada.
func (t *Tracker) ClosePosition(ctx context.Context, subject string, sellPrice int64) (domain.TradePosition, domain.Settlement, error) {
	pos, err := t.book.LastOpen(ctx, domain.NormalizeSubject(subject))
	if err != nil {
		return domain.TradePosition{}, domain.Settlement{}, err
	}

	st := pos.Close(sellPrice, t.feeRate)
	if err := t.book.Settle(ctx, pos); err != nil {
		return domain.TradePosition{}, domain.Settlement{}, fmt.Errorf("tracker.ClosePosition: %w", err)
	}
	return pos, st, nil
}

// Summary devolve o resumo da carteira.
func (t *Tracker) Summary(ctx context.Context) (domain.Portfolio, error) {
	pf, err := t.book.Summary(ctx, t.recentClosed)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("tracker.Summary: %w", err)
	}
	return pf, nil
}
