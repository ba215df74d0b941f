package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmartins/futledger/internal/adapters/storage"
	"github.com/bmartins/futledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLedger(t *testing.T) (*storage.CSVLedger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "precos_historico.csv")
	return storage.NewCSVLedger(path), path
}

func makeRecord(subject string, price int64, at time.Time) domain.PriceRecord {
	return domain.PriceRecord{
		Timestamp: at,
		Subject:   subject,
		Price:     price,
		Platform:  domain.PlatformPS,
	}
}

func TestCSVLedger_StoreNotFound(t *testing.T) {
	ledger, _ := tempLedger(t)

	_, err := ledger.HistoryFor(context.Background(), "Mbappé")
	assert.ErrorIs(t, err, domain.ErrStoreNotFound)

	// LatestFor trata store ausente como histórico vazio
	latest, err := ledger.LatestFor(context.Background(), "Mbappé")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestCSVLedger_AppendRoundTrip(t *testing.T) {
	ledger, path := tempLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []domain.PriceRecord{
		makeRecord("Kylian Mbappé", 1500000, base),
		makeRecord("Kylian Mbappé", 1480000, base.Add(time.Hour)),
		makeRecord("Vini Jr.", 2100000, base.Add(2*time.Hour)),
	}
	for _, rec := range recs {
		require.NoError(t, ledger.Append(ctx, rec))
	}

	// Re-lê do disco: mesmos registros, mesma ordem, mesmos campos
	history, err := ledger.HistoryFor(ctx, "Kylian Mbappé")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, recs[0], history[0])
	assert.Equal(t, recs[1], history[1])

	// Cabeçalho gravado uma única vez
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "data_hora,jogador,preco_moedas,plataforma\n")
}

func TestCSVLedger_HistoryCaseInsensitive(t *testing.T) {
	ledger, _ := tempLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Append(ctx, makeRecord("Kylian Mbappé", 1500000, time.Now().UTC())))

	history, err := ledger.HistoryFor(ctx, "KYLIAN MBAPPÉ")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCSVLedger_EmptyResultVsNotFound(t *testing.T) {
	ledger, _ := tempLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Append(ctx, makeRecord("Vini Jr.", 2100000, time.Now().UTC())))

	// Store existe mas não tem linhas do jogador: vazio, sem erro
	history, err := ledger.HistoryFor(ctx, "Haaland")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCSVLedger_LatestForIsPerSubject(t *testing.T) {
	ledger, _ := tempLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Append(ctx, makeRecord("Mbappé", 1500000, base)))
	require.NoError(t, ledger.Append(ctx, makeRecord("Vini Jr.", 2100000, base.Add(time.Hour))))

	// O último registro global é do Vini, mas o LatestFor do Mbappé é o dele
	latest, err := ledger.LatestFor(ctx, "mbappé")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(1500000), latest.Price)
}

func TestCSVLedger_RecentMostRecentFirst(t *testing.T) {
	ledger, _ := tempLedger(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"A", "B", "C", "D"} {
		require.NoError(t, ledger.Append(ctx, makeRecord(name, int64(1000+i), base.Add(time.Duration(i)*time.Minute))))
	}

	recent, err := ledger.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "D", recent[0].Subject)
	assert.Equal(t, "C", recent[1].Subject)

	// n maior que o total devolve tudo
	all, err := ledger.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCSVLedger_SubjectsSortedDeduped(t *testing.T) {
	ledger, _ := tempLedger(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, ledger.Append(ctx, makeRecord("Vini Jr.", 1, now)))
	require.NoError(t, ledger.Append(ctx, makeRecord("Haaland", 2, now)))
	require.NoError(t, ledger.Append(ctx, makeRecord("HAALAND", 3, now)))

	subjects, err := ledger.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Haaland", "Vini Jr."}, subjects)
}

func TestCSVLedger_LegacyFormatVariant(t *testing.T) {
	// Variante antiga: quarta coluna é o preço formatado, não a plataforma
	path := filepath.Join(t.TempDir(), "precos_historico.csv")
	legacy := "data_hora,jogador,preco_moedas,preco_formatado\n" +
		"2025-10-02 18:30:00,Kylian Mbappé,1500000,1.500.000 moedas\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	ledger := storage.NewCSVLedger(path)
	history, err := ledger.HistoryFor(context.Background(), "kylian mbappé")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(1500000), history[0].Price)
	assert.Equal(t, domain.PlatformUnknown, history[0].Platform)
}

func TestCSVLedger_MalformedRowSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "precos_historico.csv")
	content := "data_hora,jogador,preco_moedas,plataforma\n" +
		"2026-03-01 12:00:00,Mbappé,1500000,ps\n" +
		"2026-03-01 13:00:00,Mbappé,not-a-price,ps\n" +
		"2026-03-01 14:00:00,Mbappé,1510000,ps\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ledger := storage.NewCSVLedger(path)
	history, err := ledger.HistoryFor(context.Background(), "Mbappé")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1500000), history[0].Price)
	assert.Equal(t, int64(1510000), history[1].Price)
}

func TestCSVLedger_SpacesAfterDelimiter(t *testing.T) {
	// Alguns drafts gravavam o cabeçalho com espaço depois da vírgula
	path := filepath.Join(t.TempDir(), "precos_historico.csv")
	content := "data_hora, jogador, preco_moedas, plataforma\n" +
		"2026-03-01 12:00:00, Mbappé, 1500000, ps\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ledger := storage.NewCSVLedger(path)
	history, err := ledger.HistoryFor(context.Background(), "Mbappé")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.PlatformPS, history[0].Platform)
}

func TestCSVLedger_ErrorsWrapped(t *testing.T) {
	// Diretório no lugar do arquivo: falha de I/O, não panic
	dir := t.TempDir()
	ledger := storage.NewCSVLedger(dir)
	err := ledger.Append(context.Background(), makeRecord("X", 1, time.Now().UTC()))
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrStoreNotFound))
}
