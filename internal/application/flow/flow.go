// Package flow é a camada de conversa: uma máquina de estados explícita que
// coleta (jogador, plataforma, preço) passo a passo e traduz os resultados do
// core em texto para o usuário. Não conhece nenhum transporte de chat:
// consome texto e devolve texto.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bmartins/futledger/internal/application/advisor"
	"github.com/bmartins/futledger/internal/application/tracker"
	"github.com/bmartins/futledger/internal/domain"
	"github.com/bmartins/futledger/internal/ports"
)

// Intent é o que o usuário quer fazer com o preço que está informando.
type Intent int

const (
	IntentQuote Intent = iota // registrar uma observação de preço
	IntentBuy                 // abrir posição
	IntentSell                // fechar posição
)

type stateKind int

const (
	stateReady stateKind = iota
	stateAwaitingPlayer
	stateAwaitingPlatform
	stateAwaitingPrice
)

// state carrega o que já foi coletado até aqui.
type state struct {
	kind     stateKind
	intent   Intent
	subject  string
	platform domain.Platform
}

const menuText = "Comandos: preco (registrar preço e receber dica), comprar, vender, " +
	"carteira, recentes, jogadores, cancelar."

// ThrottleMessage é a resposta quando a sessão recebe mensagens rápido demais.
const ThrottleMessage = "⏳ Calma! Muitas mensagens em pouco tempo. Tenta de novo em alguns segundos."

// Session é a conversa de um usuário. Uma sessão por usuário; o throttle
// evita rajadas de mensagens.
type Session struct {
	advisor      *advisor.Advisor
	tracker      *tracker.Tracker
	ledger       ports.Ledger
	recentPrices int
	limiter      *rate.Limiter
	st           state
}

// NewSession cria uma conversa nova. recentPrices limita o comando recentes;
// valores não positivos caem no padrão de 10 linhas.
func NewSession(a *advisor.Advisor, t *tracker.Tracker, ledger ports.Ledger, recentPrices int) *Session {
	if recentPrices <= 0 {
		recentPrices = 10
	}
	return &Session{
		advisor:      a,
		tracker:      t,
		ledger:       ledger,
		recentPrices: recentPrices,
		limiter:      rate.NewLimiter(rate.Every(300*time.Millisecond), 5),
	}
}

// Handle processa uma mensagem do usuário e devolve a resposta. Falhas do
// core nunca vazam cruas: viram texto de erro amigável e um log.
func (s *Session) Handle(ctx context.Context, input string) string {
	if !s.limiter.Allow() {
		return ThrottleMessage
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return s.prompt()
	}
	if strings.EqualFold(input, "cancelar") {
		s.st = state{}
		return "Ok, cancelado. " + menuText
	}

	switch s.st.kind {
	case stateAwaitingPlayer:
		s.st.subject = input
		s.st.kind = stateAwaitingPlatform
		return "Em qual plataforma? (ps / xbox / pc)"

	case stateAwaitingPlatform:
		platform, err := domain.ParsePlatform(input)
		if err != nil || platform == domain.PlatformUnknown {
			return "Plataforma desconhecida. Responde ps, xbox ou pc."
		}
		s.st.platform = platform
		s.st.kind = stateAwaitingPrice
		return s.prompt()

	case stateAwaitingPrice:
		price, err := domain.ParsePrice(input)
		if err != nil {
			return "Esse valor não parece um preço válido. Digite só números (ex: 1.500.000)."
		}
		st := s.st
		s.st = state{}
		return s.execute(ctx, st, price)
	}

	return s.dispatch(ctx, input)
}

// dispatch trata comandos no estado pronto.
func (s *Session) dispatch(ctx context.Context, input string) string {
	switch strings.ToLower(input) {
	case "/start", "oi", "ajuda", "menu":
		return "Olá! Qual jogador do EA FC você quer acompanhar?\n" + menuText

	case "preco", "preço":
		s.st = state{kind: stateAwaitingPlayer, intent: IntentQuote}
		return "Qual jogador você quer registrar?"

	case "comprar":
		s.st = state{kind: stateAwaitingPlayer, intent: IntentBuy}
		return "Qual jogador você comprou?"

	case "vender":
		s.st = state{kind: stateAwaitingPlayer, intent: IntentSell}
		return "Qual jogador você vendeu?"

	case "carteira":
		return s.portfolioText(ctx)

	case "recentes":
		return s.recentText(ctx)

	case "jogadores":
		return s.subjectsText(ctx)
	}
	return "Não entendi. " + menuText
}

// prompt repete a pergunta pendente do estado atual.
func (s *Session) prompt() string {
	switch s.st.kind {
	case stateAwaitingPlayer:
		return "Qual o nome do jogador?"
	case stateAwaitingPlatform:
		return "Em qual plataforma? (ps / xbox / pc)"
	case stateAwaitingPrice:
		switch s.st.intent {
		case IntentBuy:
			return "Por quanto você comprou? (em moedas)"
		case IntentSell:
			return "Por quanto você vendeu? (em moedas)"
		}
		return "Qual o preço atual em moedas?"
	}
	return menuText
}

// execute chama o core com a coleta completa e formata o resultado.
func (s *Session) execute(ctx context.Context, st state, price int64) string {
	switch st.intent {
	case IntentBuy:
		pos, err := s.tracker.OpenPosition(ctx, st.subject, price, st.platform)
		if err != nil {
			slog.Error("flow: open position failed", "subject", st.subject, "err", err)
			return "⚠️ Não consegui registrar a compra agora. Tenta de novo."
		}
		return fmt.Sprintf("✅ Compra registrada: %s por %s moedas (%s).",
			pos.Subject, domain.FormatPrice(pos.BuyPrice), pos.Platform.Label())

	case IntentSell:
		pos, settle, err := s.tracker.ClosePosition(ctx, st.subject, price)
		if errors.Is(err, domain.ErrNoOpenPosition) {
			return fmt.Sprintf("Você não tem compra em aberto de %s.",
				domain.NormalizeSubject(st.subject))
		}
		if err != nil {
			slog.Error("flow: close position failed", "subject", st.subject, "err", err)
			return "⚠️ Não consegui registrar a venda agora. Tenta de novo."
		}
		return sellMessage(pos, settle)
	}

	rec, tip, err := s.advisor.Record(ctx, st.subject, price, st.platform)
	if err != nil {
		slog.Error("flow: record price failed", "subject", st.subject, "err", err)
		return "⚠️ Não consegui registrar o preço agora. Tenta de novo."
	}
	return fmt.Sprintf("O preço de %s é: %s moedas.\n\n📊 Dica de Trade:\n%s",
		rec.Subject, domain.FormatPrice(rec.Price), TipMessage(tip))
}

func sellMessage(pos domain.TradePosition, st domain.Settlement) string {
	result := "lucro líquido"
	net := st.Net
	if net < 0 {
		result = "prejuízo"
		net = -net
	}
	return fmt.Sprintf(
		"✅ Venda registrada: %s por %s moedas.\nCompra: %s | Taxa: %s | %s: %s moedas.",
		pos.Subject,
		domain.FormatPrice(*pos.SellPrice),
		domain.FormatPrice(pos.BuyPrice),
		domain.FormatPrice(st.Fee),
		result,
		domain.FormatPrice(net),
	)
}

// TipMessage formata a dica do jeito que o bot sempre falou com o usuário.
func TipMessage(tip domain.Tip) string {
	switch tip.Kind {
	case domain.TipPriceUp:
		return fmt.Sprintf("⬆️ %s moedas mais caro que a última busca (%s). PODE SER HORA DE VENDER!",
			domain.FormatPrice(tip.Delta), tip.ComparedAt.Format(domain.TimestampLayout))
	case domain.TipPriceDown:
		return fmt.Sprintf("⬇️ %s moedas mais barato que a última busca (%s). PODE SER HORA DE COMPRAR!",
			domain.FormatPrice(tip.Delta), tip.ComparedAt.Format(domain.TimestampLayout))
	case domain.TipStable:
		return "➡️ Preço estável desde a última busca."
	}
	return "Primeiro registro. Busque novamente mais tarde para comparar os preços!"
}

// --- textos das consultas ---

func (s *Session) portfolioText(ctx context.Context) string {
	pf, err := s.tracker.Summary(ctx)
	if err != nil {
		slog.Error("flow: portfolio summary failed", "err", err)
		return "⚠️ Não consegui ler a carteira agora."
	}
	if len(pf.Open) == 0 && len(pf.RecentClosed) == 0 {
		return "Carteira vazia. Use comprar para registrar sua primeira posição."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 Lucro realizado: %s moedas\n", domain.FormatPrice(pf.TotalNetProfit))
	if len(pf.Open) > 0 {
		sb.WriteString("\n📈 Em aberto:\n")
		for _, pos := range pf.Open {
			fmt.Fprintf(&sb, "- %s: compra %s (%s)\n",
				pos.Subject, domain.FormatPrice(pos.BuyPrice), pos.Platform.Label())
		}
	}
	if len(pf.RecentClosed) > 0 {
		sb.WriteString("\n📕 Últimas vendas:\n")
		for _, pos := range pf.RecentClosed {
			fmt.Fprintf(&sb, "- %s: compra %s → venda %s, líquido %s\n",
				pos.Subject, domain.FormatPrice(pos.BuyPrice),
				domain.FormatPrice(*pos.SellPrice), domain.FormatPrice(*pos.NetProfit))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Session) recentText(ctx context.Context) string {
	recent, err := s.ledger.Recent(ctx, s.recentPrices)
	if err != nil && !errors.Is(err, domain.ErrStoreNotFound) {
		slog.Error("flow: recent failed", "err", err)
		return "⚠️ Não consegui ler o histórico agora."
	}
	if len(recent) == 0 {
		return "Nenhuma busca registrada ainda."
	}
	var sb strings.Builder
	sb.WriteString("🕐 Últimas buscas:\n")
	for _, rec := range recent {
		fmt.Fprintf(&sb, "- %s — %s: %s moedas (%s)\n",
			rec.Timestamp.Format(domain.TimestampLayout), rec.Subject,
			domain.FormatPrice(rec.Price), rec.Platform.Label())
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (s *Session) subjectsText(ctx context.Context) string {
	subjects, err := s.ledger.Subjects(ctx)
	if err != nil && !errors.Is(err, domain.ErrStoreNotFound) {
		slog.Error("flow: subjects failed", "err", err)
		return "⚠️ Não consegui ler o histórico agora."
	}
	if len(subjects) == 0 {
		return "Nenhum jogador registrado ainda."
	}
	return "Jogadores com histórico: " + strings.Join(subjects, ", ")
}
