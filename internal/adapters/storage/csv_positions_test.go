package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bmartins/futledger/internal/adapters/storage"
	"github.com/bmartins/futledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempBook(t *testing.T) (*storage.CSVPositionBook, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carteira_posicoes.csv")
	return storage.NewCSVPositionBook(path), path
}

func makePosition(subject string, buy int64, at time.Time) domain.TradePosition {
	return domain.TradePosition{
		OpenedAt: at,
		Subject:  subject,
		BuyPrice: buy,
		Platform: domain.PlatformPS,
	}
}

func TestCSVPositionBook_OpenAndSettle(t *testing.T) {
	book, path := tempBook(t)
	ctx := context.Background()

	opened := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, book.Open(ctx, makePosition("Player X", 1000000, opened)))

	pos, err := book.LastOpen(ctx, "player x")
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), pos.BuyPrice)

	pos.Close(1200000, 0.05)
	require.NoError(t, book.Settle(ctx, pos))

	// A linha foi atualizada no lugar
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1200000")
	assert.Contains(t, string(data), "140000")

	// Não sobrou posição aberta
	_, err = book.LastOpen(ctx, "Player X")
	assert.ErrorIs(t, err, domain.ErrNoOpenPosition)
}

func TestCSVPositionBook_NoOpenPosition(t *testing.T) {
	book, path := tempBook(t)
	ctx := context.Background()

	_, err := book.LastOpen(ctx, "Mbappé")
	assert.ErrorIs(t, err, domain.ErrNoOpenPosition)

	// Nada foi criado nem alterado
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCSVPositionBook_LastInFirstClosed(t *testing.T) {
	book, _ := tempBook(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, book.Open(ctx, makePosition("Mbappé", 1000000, base)))
	require.NoError(t, book.Open(ctx, makePosition("Mbappé", 1100000, base.Add(time.Hour))))

	// Fecha primeiro a compra mais recente
	pos, err := book.LastOpen(ctx, "Mbappé")
	require.NoError(t, err)
	assert.Equal(t, int64(1100000), pos.BuyPrice)

	pos.Close(1300000, 0.05)
	require.NoError(t, book.Settle(ctx, pos))

	// A mais antiga continua aberta
	pos, err = book.LastOpen(ctx, "Mbappé")
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), pos.BuyPrice)
}

func TestCSVPositionBook_SettlePreservesOtherRows(t *testing.T) {
	book, _ := tempBook(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, book.Open(ctx, makePosition("Vini Jr.", 2000000, base)))
	require.NoError(t, book.Open(ctx, makePosition("Mbappé", 1000000, base.Add(time.Minute))))

	pos, err := book.LastOpen(ctx, "Mbappé")
	require.NoError(t, err)
	pos.Close(1200000, 0.05)
	require.NoError(t, book.Settle(ctx, pos))

	// O Vini continua aberto e intacto depois do rewrite
	other, err := book.LastOpen(ctx, "Vini Jr.")
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), other.BuyPrice)
	assert.Equal(t, base, other.OpenedAt)
}

func TestCSVPositionBook_Summary(t *testing.T) {
	book, _ := tempBook(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, book.Open(ctx, makePosition("A", 1000000, base)))
	require.NoError(t, book.Open(ctx, makePosition("B", 500000, base.Add(time.Hour))))
	require.NoError(t, book.Open(ctx, makePosition("C", 800000, base.Add(2*time.Hour))))

	// Fecha A com lucro 140.000 e B com prejuízo
	pos, err := book.LastOpen(ctx, "A")
	require.NoError(t, err)
	pos.Close(1200000, 0.05)
	require.NoError(t, book.Settle(ctx, pos))

	pos, err = book.LastOpen(ctx, "B")
	require.NoError(t, err)
	pos.Close(400000, 0.05) // gross -100.000, fee 20.000 → net -120.000
	require.NoError(t, book.Settle(ctx, pos))

	pf, err := book.Summary(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(140000-120000), pf.TotalNetProfit)
	require.Len(t, pf.Open, 1)
	assert.Equal(t, "C", pf.Open[0].Subject)
	require.Len(t, pf.RecentClosed, 2)
	// Mais recente primeiro (ordem do arquivo, invertida)
	assert.Equal(t, "B", pf.RecentClosed[0].Subject)
	assert.Equal(t, "A", pf.RecentClosed[1].Subject)
}

func TestCSVPositionBook_SummaryLimitsRecentClosed(t *testing.T) {
	book, _ := tempBook(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		name := string(rune('A' + i))
		require.NoError(t, book.Open(ctx, makePosition(name, 100000, base.Add(time.Duration(i)*time.Minute))))
		pos, err := book.LastOpen(ctx, name)
		require.NoError(t, err)
		pos.Close(200000, 0.05)
		require.NoError(t, book.Settle(ctx, pos))
	}

	pf, err := book.Summary(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, pf.Open)
	require.Len(t, pf.RecentClosed, 2)
	assert.Equal(t, "D", pf.RecentClosed[0].Subject)
	assert.Equal(t, "C", pf.RecentClosed[1].Subject)
}

func TestCSVPositionBook_SummaryEmptyStore(t *testing.T) {
	book, _ := tempBook(t)

	pf, err := book.Summary(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, pf.TotalNetProfit)
	assert.Empty(t, pf.Open)
	assert.Empty(t, pf.RecentClosed)
}

func TestCSVPositionBook_MalformedRowSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carteira_posicoes.csv")
	content := strings.Join([]string{
		"data_hora_compra,jogador,preco_compra,plataforma,preco_venda,lucro_liquido",
		"2026-03-01 09:00:00,Mbappé,1000000,ps,,",
		"2026-03-01 10:00:00,Vini Jr.,oops,ps,,",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	book := storage.NewCSVPositionBook(path)
	pf, err := book.Summary(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, pf.Open, 1)
	assert.Equal(t, "Mbappé", pf.Open[0].Subject)
}
