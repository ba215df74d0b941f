package domain

import (
	"math"
	"time"
)

// DefaultFeeRate é a taxa do mercado descontada sobre o valor de venda.
const DefaultFeeRate = 0.05

// TradePosition é um par compra/venda de um jogador. Aberta enquanto
// SellPrice é nil; a única transição permitida é aberta → fechada.
type TradePosition struct {
	ID        string // uuid; vazio em posições lidas dos arquivos antigos
	OpenedAt  time.Time
	Subject   string
	BuyPrice  int64
	Platform  Platform
	SellPrice *int64
	NetProfit *int64
}

// IsOpen reporta se a posição ainda não foi vendida.
func (p TradePosition) IsOpen() bool {
	return p.SellPrice == nil
}

// Settlement é o resultado financeiro do fechamento de uma posição.
type Settlement struct {
	Gross int64 // venda - compra
	Fee   int64 // taxa do mercado, truncada
	Net   int64 // gross - fee
}

// Settle calcula o lucro líquido de uma venda: gross = sell - buy,
// fee = trunc(sell × feeRate), net = gross - fee.
func Settle(buy, sell int64, feeRate float64) Settlement {
	gross := sell - buy
	fee := int64(math.Trunc(float64(sell) * feeRate))
	return Settlement{Gross: gross, Fee: fee, Net: gross - fee}
}

// Close aplica a venda à posição, preenchendo SellPrice e NetProfit.
func (p *TradePosition) Close(sell int64, feeRate float64) Settlement {
	st := Settle(p.BuyPrice, sell, feeRate)
	p.SellPrice = &sell
	net := st.Net
	p.NetProfit = &net
	return st
}

// Portfolio é o resumo da carteira: lucro realizado total, posições abertas
// e as últimas posições fechadas, ambas da mais recente para a mais antiga.
type Portfolio struct {
	TotalNetProfit int64
	Open           []TradePosition
	RecentClosed   []TradePosition
}
