// Package advisor registra observações de preço e deriva a dica de trade a
// partir do histórico. Stateless: todo o estado vive no ledger.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bmartins/futledger/internal/domain"
	"github.com/bmartins/futledger/internal/ports"
)

type Advisor struct {
	ledger ports.Ledger
	now    func() time.Time
}

func New(ledger ports.Ledger) *Advisor {
	return &Advisor{ledger: ledger, now: time.Now}
}

// NewWithClock injeta o relógio, para testes determinísticos.
func NewWithClock(ledger ports.Ledger, now func() time.Time) *Advisor {
	return &Advisor{ledger: ledger, now: now}
}

// Record grava uma observação de preço e devolve o registro gravado mais a
// dica calculada contra o registro imediatamente anterior do mesmo jogador.
// Ledger ausente conta como histórico vazio (primeira observação de todas).
func (a *Advisor) Record(ctx context.Context, subject string, price int64, platform domain.Platform) (domain.PriceRecord, domain.Tip, error) {
	if price < 0 {
		return domain.PriceRecord{}, domain.Tip{}, &domain.ParseError{Field: "preco", Value: fmt.Sprintf("%d", price)}
	}

	name := domain.NormalizeSubject(subject)

	prior, err := a.ledger.HistoryFor(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrStoreNotFound) {
		return domain.PriceRecord{}, domain.Tip{}, fmt.Errorf("advisor.Record: read history: %w", err)
	}
	tip := domain.ComputeTip(prior, price)

	rec := domain.PriceRecord{
		Timestamp: a.now().UTC().Truncate(time.Second),
		Subject:   name,
		Price:     price,
		Platform:  platform,
	}
	if err := a.ledger.Append(ctx, rec); err != nil {
		return domain.PriceRecord{}, domain.Tip{}, fmt.Errorf("advisor.Record: append: %w", err)
	}
	return rec, tip, nil
}

// History devolve o histórico do jogador; ledger ausente vira lista vazia.
func (a *Advisor) History(ctx context.Context, subject string) ([]domain.PriceRecord, error) {
	history, err := a.ledger.HistoryFor(ctx, domain.NormalizeSubject(subject))
	if errors.Is(err, domain.ErrStoreNotFound) {
		return nil, nil
	}
	return history, err
}
