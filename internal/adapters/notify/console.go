// Package notify imprime os resultados na saída padrão, para os comandos
// one-shot do CLI.
package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/bmartins/futledger/internal/domain"
)

// Console escreve tabelas e mensagens formatadas.
type Console struct {
	out io.Writer
}

// NewConsole cria um console que escreve em stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter cria um console para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintTip imprime o registro recém-gravado e a dica já renderizada.
func (c *Console) PrintTip(rec domain.PriceRecord, tipText string) {
	fmt.Fprintf(c.out, "✅ %s — %s moedas (%s)\n\n📊 Dica de Trade:\n%s\n",
		rec.Subject, domain.FormatPrice(rec.Price), rec.Platform.Label(), tipText)
}

// PrintHistory imprime o histórico de um jogador em ordem de inserção.
func (c *Console) PrintHistory(subject string, recs []domain.PriceRecord) {
	if len(recs) == 0 {
		fmt.Fprintf(c.out, "Nenhum registro para %s.\n", subject)
		return
	}
	fmt.Fprintf(c.out, "Histórico de %s (%d registros):\n", subject, len(recs))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Data", "Preço", "Plataforma")
	for i, rec := range recs {
		table.Append(
			fmt.Sprintf("%d", i+1),
			rec.Timestamp.Format(domain.TimestampLayout),
			domain.FormatPrice(rec.Price),
			rec.Platform.Label(),
		)
	}
	table.Render()
}

// PrintRecent imprime as últimas buscas de todos os jogadores.
func (c *Console) PrintRecent(recs []domain.PriceRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(c.out, "Nenhuma busca registrada ainda.")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Data", "Jogador", "Preço", "Plataforma")
	for _, rec := range recs {
		table.Append(
			rec.Timestamp.Format(domain.TimestampLayout),
			rec.Subject,
			domain.FormatPrice(rec.Price),
			rec.Platform.Label(),
		)
	}
	table.Render()
}

// PrintSubjects imprime os jogadores com histórico.
func (c *Console) PrintSubjects(subjects []string) {
	if len(subjects) == 0 {
		fmt.Fprintln(c.out, "Nenhum jogador registrado ainda.")
		return
	}
	for _, name := range subjects {
		fmt.Fprintf(c.out, "- %s\n", name)
	}
}

// PrintPortfolio imprime o resumo da carteira: posições abertas, últimas
// vendas e o lucro realizado total.
func (c *Console) PrintPortfolio(pf domain.Portfolio) {
	if len(pf.Open) == 0 && len(pf.RecentClosed) == 0 {
		fmt.Fprintln(c.out, "Carteira vazia.")
		return
	}

	if len(pf.Open) > 0 {
		fmt.Fprintf(c.out, "📈 Em aberto (%d):\n", len(pf.Open))
		table := tablewriter.NewWriter(c.out)
		table.Header("Jogador", "Compra", "Plataforma", "Desde")
		for _, pos := range pf.Open {
			table.Append(
				pos.Subject,
				domain.FormatPrice(pos.BuyPrice),
				pos.Platform.Label(),
				pos.OpenedAt.Format(domain.TimestampLayout),
			)
		}
		table.Render()
	}

	if len(pf.RecentClosed) > 0 {
		fmt.Fprintf(c.out, "📕 Últimas vendas (%d):\n", len(pf.RecentClosed))
		table := tablewriter.NewWriter(c.out)
		table.Header("Jogador", "Compra", "Venda", "Líquido")
		for _, pos := range pf.RecentClosed {
			table.Append(
				pos.Subject,
				domain.FormatPrice(pos.BuyPrice),
				domain.FormatPrice(*pos.SellPrice),
				domain.FormatPrice(*pos.NetProfit),
			)
		}
		table.Render()
	}

	fmt.Fprintf(c.out, "💰 Lucro realizado total: %s moedas\n", domain.FormatPrice(pf.TotalNetProfit))
}
