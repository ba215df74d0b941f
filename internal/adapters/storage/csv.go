package storage

// csv.go — histórico de preços em arquivo delimitado, compatível com os CSVs
// gerados pelos drafts antigos do bot (inclusive a variante que gravava o
// preço formatado no lugar da plataforma).

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmartins/futledger/internal/domain"
)

// Cabeçalho canônico do histórico de preços.
var priceHeader = []string{"data_hora", "jogador", "preco_moedas", "plataforma"}

// legacyPriceColumn identifica a variante antiga do arquivo, que tinha o
// preço pré-formatado na quarta coluna e nenhuma plataforma.
const legacyPriceColumn = "preco_formatado"

// CSVLedger implementa ports.Ledger sobre um arquivo delimitado, append-only.
type CSVLedger struct {
	path string
}

// NewCSVLedger cria um ledger apontando para path. O arquivo só é criado na
// primeira escrita.
func NewCSVLedger(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

// Append grava um registro no final do arquivo, escrevendo o cabeçalho antes
// se o arquivo ainda não existe.
func (l *CSVLedger) Append(_ context.Context, rec domain.PriceRecord) error {
	f, created, err := openAppend(l.path)
	if err != nil {
		return fmt.Errorf("storage.Append: open %q: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if created {
		if err := w.Write(priceHeader); err != nil {
			return fmt.Errorf("storage.Append: write header: %w", err)
		}
	}
	row := []string{
		rec.Timestamp.UTC().Format(domain.TimestampLayout),
		rec.Subject,
		strconv.FormatInt(rec.Price, 10),
		string(rec.Platform),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("storage.Append: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("storage.Append: flush: %w", err)
	}
	return nil
}

// HistoryFor devolve os registros do jogador na ordem de inserção.
func (l *CSVLedger) HistoryFor(ctx context.Context, subject string) ([]domain.PriceRecord, error) {
	all, err := l.readAll(ctx)
	if err != nil {
		return nil, err
	}
	history := make([]domain.PriceRecord, 0)
	for _, rec := range all {
		if domain.SameSubject(rec.Subject, subject) {
			history = append(history, rec)
		}
	}
	return history, nil
}

// LatestFor devolve o último registro do jogador, ou nil quando não há
// histórico (arquivo ausente conta como histórico vazio aqui).
func (l *CSVLedger) LatestFor(ctx context.Context, subject string) (*domain.PriceRecord, error) {
	history, err := l.HistoryFor(ctx, subject)
	if errors.Is(err, domain.ErrStoreNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	last := history[len(history)-1]
	return &last, nil
}

// Subjects devolve os jogadores distintos, normalizados e ordenados.
func (l *CSVLedger) Subjects(ctx context.Context) ([]string, error) {
	all, err := l.readAll(ctx)
	if errors.Is(err, domain.ErrStoreNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	for _, rec := range all {
		name := domain.NormalizeSubject(rec.Subject)
		seen[strings.ToLower(name)] = name
	}
	subjects := make([]string, 0, len(seen))
	for _, name := range seen {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)
	return subjects, nil
}

// Recent devolve os últimos n registros, do mais recente para o mais antigo.
func (l *CSVLedger) Recent(ctx context.Context, n int) ([]domain.PriceRecord, error) {
	all, err := l.readAll(ctx)
	if errors.Is(err, domain.ErrStoreNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if n > len(all) {
		n = len(all)
	}
	recent := make([]domain.PriceRecord, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		recent = append(recent, all[i])
	}
	return recent, nil
}

// Close não tem nada a liberar num store de arquivo plano.
func (l *CSVLedger) Close() error { return nil }

// --- helpers internos ---

// readAll lê o arquivo inteiro, pulando (com log) linhas malformadas.
func (l *CSVLedger) readAll(_ context.Context) ([]domain.PriceRecord, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.readAll: open %q: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage.readAll: parse %q: %w", l.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	legacy := len(header) >= 4 && strings.TrimSpace(header[3]) == legacyPriceColumn

	var recs []domain.PriceRecord
	for i, row := range rows[1:] {
		rec, ok := parsePriceRow(row, legacy)
		if !ok {
			slog.Warn("skipping malformed ledger row", "file", l.path, "line", i+2)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// parsePriceRow converte uma linha do CSV. Linhas com timestamp ou preço
// inválido são descartadas pelo chamador.
func parsePriceRow(row []string, legacy bool) (domain.PriceRecord, bool) {
	if len(row) < 3 {
		return domain.PriceRecord{}, false
	}
	ts, err := time.ParseInLocation(domain.TimestampLayout, strings.TrimSpace(row[0]), time.UTC)
	if err != nil {
		return domain.PriceRecord{}, false
	}
	price, err := domain.ParsePrice(row[2])
	if err != nil {
		return domain.PriceRecord{}, false
	}

	platform := domain.PlatformUnknown
	if !legacy && len(row) >= 4 {
		platform, err = domain.ParsePlatform(row[3])
		if err != nil {
			slog.Warn("unknown platform tag in ledger row", "value", row[3])
			platform = domain.PlatformUnknown
		}
	}

	return domain.PriceRecord{
		Timestamp: ts,
		Subject:   strings.TrimSpace(row[1]),
		Price:     price,
		Platform:  platform,
	}, true
}

// openAppend abre o arquivo para append, reportando se acabou de ser criado.
func openAppend(path string) (*os.File, bool, error) {
	_, statErr := os.Stat(path)
	created := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, err
	}
	return f, created, nil
}
