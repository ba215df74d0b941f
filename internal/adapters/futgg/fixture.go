package futgg

import (
	"context"

	"github.com/bmartins/futledger/internal/domain"
)

// simulatedPrice é o valor fixo que os drafts originais devolviam enquanto o
// scraping não existia. Mantido como default do modo dry-run.
const simulatedPrice = 1500000

// Fixture implementa ports.PriceSource com valores fixos, para testes e para
// rodar offline (-dry-run).
type Fixture struct {
	prices map[string]int64
}

func NewFixture() *Fixture {
	return &Fixture{prices: make(map[string]int64)}
}

// Set fixa o preço devolvido para um jogador.
func (f *Fixture) Set(subject string, price int64) {
	f.prices[domain.NormalizeSubject(subject)] = price
}

// Lookup devolve o preço fixado, ou o valor simulado padrão.
func (f *Fixture) Lookup(_ context.Context, subject string, _ domain.Platform) (int64, error) {
	if price, ok := f.prices[domain.NormalizeSubject(subject)]; ok {
		return price, nil
	}
	return simulatedPrice, nil
}
