package storage

// csv_positions.go — carteira de posições em arquivo delimitado. Fechamento
// é um update pontual num arquivo plano: lê tudo, altera uma linha e regrava
// via arquivo temporário + rename atômico, para nunca truncar a carteira no
// meio de uma falha.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmartins/futledger/internal/domain"
)

// Cabeçalho canônico da carteira.
var positionHeader = []string{
	"data_hora_compra", "jogador", "preco_compra",
	"plataforma", "preco_venda", "lucro_liquido",
}

// CSVPositionBook implementa ports.PositionBook sobre um arquivo delimitado.
type CSVPositionBook struct {
	path string
}

// NewCSVPositionBook cria uma carteira apontando para path.
func NewCSVPositionBook(path string) *CSVPositionBook {
	return &CSVPositionBook{path: path}
}

// Open registra uma posição aberta no final do arquivo.
func (b *CSVPositionBook) Open(_ context.Context, pos domain.TradePosition) error {
	f, created, err := openAppend(b.path)
	if err != nil {
		return fmt.Errorf("storage.Open: open %q: %w", b.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if created {
		if err := w.Write(positionHeader); err != nil {
			return fmt.Errorf("storage.Open: write header: %w", err)
		}
	}
	if err := w.Write(positionRow(pos)); err != nil {
		return fmt.Errorf("storage.Open: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("storage.Open: flush: %w", err)
	}
	return nil
}

// LastOpen devolve a posição aberta mais recente do jogador. Entre várias
// compras em aberto, a última inserida é a primeira a fechar.
func (b *CSVPositionBook) LastOpen(ctx context.Context, subject string) (domain.TradePosition, error) {
	all, err := b.readAll(ctx)
	if errors.Is(err, domain.ErrStoreNotFound) {
		return domain.TradePosition{}, domain.ErrNoOpenPosition
	}
	if err != nil {
		return domain.TradePosition{}, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].IsOpen() && domain.SameSubject(all[i].Subject, subject) {
			return all[i], nil
		}
	}
	return domain.TradePosition{}, domain.ErrNoOpenPosition
}

// Settle regrava a carteira com pos no lugar da última linha aberta do mesmo
// jogador. Se não há linha aberta, nada é alterado.
func (b *CSVPositionBook) Settle(ctx context.Context, pos domain.TradePosition) error {
	all, err := b.readAll(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].IsOpen() && domain.SameSubject(all[i].Subject, pos.Subject) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNoOpenPosition
	}
	all[idx] = pos

	return b.rewrite(all)
}

// Summary devolve o resumo da carteira: lucro total realizado, posições
// abertas e as últimas recentClosed fechadas, da mais recente para a mais
// antiga.
func (b *CSVPositionBook) Summary(ctx context.Context, recentClosed int) (domain.Portfolio, error) {
	all, err := b.readAll(ctx)
	if errors.Is(err, domain.ErrStoreNotFound) {
		return domain.Portfolio{}, nil
	}
	if err != nil {
		return domain.Portfolio{}, err
	}
	return buildPortfolio(all, recentClosed), nil
}

// Close não tem nada a liberar num store de arquivo plano.
func (b *CSVPositionBook) Close() error { return nil }

// --- helpers internos ---

func (b *CSVPositionBook) readAll(_ context.Context) ([]domain.TradePosition, error) {
	f, err := os.Open(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.readAll: open %q: %w", b.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage.readAll: parse %q: %w", b.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var positions []domain.TradePosition
	for i, row := range rows[1:] {
		pos, ok := parsePositionRow(row)
		if !ok {
			slog.Warn("skipping malformed position row", "file", b.path, "line", i+2)
			continue
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// rewrite grava a carteira inteira num temporário e faz rename sobre o
// arquivo original.
func (b *CSVPositionBook) rewrite(positions []domain.TradePosition) error {
	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("storage.rewrite: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(positionHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.rewrite: write header: %w", err)
	}
	for _, pos := range positions {
		if err := w.Write(positionRow(pos)); err != nil {
			tmp.Close()
			return fmt.Errorf("storage.rewrite: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.rewrite: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.rewrite: close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("storage.rewrite: rename: %w", err)
	}
	return nil
}

func positionRow(pos domain.TradePosition) []string {
	sell, net := "", ""
	if pos.SellPrice != nil {
		sell = strconv.FormatInt(*pos.SellPrice, 10)
	}
	if pos.NetProfit != nil {
		net = strconv.FormatInt(*pos.NetProfit, 10)
	}
	return []string{
		pos.OpenedAt.UTC().Format(domain.TimestampLayout),
		pos.Subject,
		strconv.FormatInt(pos.BuyPrice, 10),
		string(pos.Platform),
		sell,
		net,
	}
}

func parsePositionRow(row []string) (domain.TradePosition, bool) {
	if len(row) < 6 {
		return domain.TradePosition{}, false
	}
	opened, err := time.ParseInLocation(domain.TimestampLayout, strings.TrimSpace(row[0]), time.UTC)
	if err != nil {
		return domain.TradePosition{}, false
	}
	buy, err := domain.ParsePrice(row[2])
	if err != nil {
		return domain.TradePosition{}, false
	}
	platform, err := domain.ParsePlatform(row[3])
	if err != nil {
		platform = domain.PlatformUnknown
	}

	pos := domain.TradePosition{
		OpenedAt: opened,
		Subject:  strings.TrimSpace(row[1]),
		BuyPrice: buy,
		Platform: platform,
	}

	if sellStr := strings.TrimSpace(row[4]); sellStr != "" {
		sell, err := domain.ParsePrice(sellStr)
		if err != nil {
			return domain.TradePosition{}, false
		}
		// lucro_liquido pode ser negativo, então não passa pelo ParsePrice
		net, err := strconv.ParseInt(strings.TrimSpace(row[5]), 10, 64)
		if err != nil {
			return domain.TradePosition{}, false
		}
		pos.SellPrice = &sell
		pos.NetProfit = &net
	}
	return pos, true
}

// buildPortfolio monta o resumo a partir da lista completa de posições.
func buildPortfolio(all []domain.TradePosition, recentClosed int) domain.Portfolio {
	var pf domain.Portfolio
	for i := len(all) - 1; i >= 0; i-- {
		pos := all[i]
		if pos.IsOpen() {
			pf.Open = append(pf.Open, pos)
			continue
		}
		pf.TotalNetProfit += *pos.NetProfit
		if recentClosed <= 0 || len(pf.RecentClosed) < recentClosed {
			pf.RecentClosed = append(pf.RecentClosed, pos)
		}
	}
	return pf
}
