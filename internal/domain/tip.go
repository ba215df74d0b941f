package domain

import "time"

// TipKind classifica a tendência de curto prazo de um jogador.
type TipKind string

const (
	TipInsufficientData TipKind = "INSUFFICIENT_DATA"
	TipPriceUp          TipKind = "PRICE_UP"   // sugere vender
	TipPriceDown        TipKind = "PRICE_DOWN" // sugere comprar
	TipStable           TipKind = "STABLE"
)

// Tip é o resultado da comparação do preço recém-observado com o último
// registro anterior do mesmo jogador.
type Tip struct {
	Kind       TipKind
	Delta      int64     // diferença absoluta em moedas
	ComparedAt time.Time // timestamp do registro usado na comparação
}

// ComputeTip classifica newPrice contra o histórico ANTERIOR ao registro que
// está sendo gravado agora. Função pura: não lê nem escreve nada.
func ComputeTip(prior []PriceRecord, newPrice int64) Tip {
	if len(prior) == 0 {
		return Tip{Kind: TipInsufficientData}
	}

	prev := prior[len(prior)-1]
	delta := newPrice - prev.Price

	switch {
	case delta > 0:
		return Tip{Kind: TipPriceUp, Delta: delta, ComparedAt: prev.Timestamp}
	case delta < 0:
		return Tip{Kind: TipPriceDown, Delta: -delta, ComparedAt: prev.Timestamp}
	}
	return Tip{Kind: TipStable, ComparedAt: prev.Timestamp}
}
