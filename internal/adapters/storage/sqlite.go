package storage

// sqlite.go — alternativa ao par de arquivos CSV. Com um storage engine de
// verdade o fechamento de posição vira um UPDATE pontual e indexado, sem o
// ciclo lê-tudo/regrava-tudo do arquivo plano.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bmartins/futledger/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Histórico de preços, append-only
CREATE TABLE IF NOT EXISTS price_records (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at TEXT    NOT NULL,
    subject     TEXT    NOT NULL,
    subject_key TEXT    NOT NULL,
    price       INTEGER NOT NULL,
    platform    TEXT    NOT NULL DEFAULT ''
);

-- Carteira de posições compra/venda
CREATE TABLE IF NOT EXISTS positions (
    id          TEXT PRIMARY KEY,
    opened_at   TEXT    NOT NULL,
    subject     TEXT    NOT NULL,
    subject_key TEXT    NOT NULL,
    buy_price   INTEGER NOT NULL,
    platform    TEXT    NOT NULL DEFAULT '',
    sell_price  INTEGER,
    net_profit  INTEGER
);

CREATE INDEX IF NOT EXISTS idx_prices_subject  ON price_records(subject_key, id);
CREATE INDEX IF NOT EXISTS idx_positions_open  ON positions(subject_key, sell_price);
`

// SQLiteStore implementa ports.Ledger e ports.PositionBook no mesmo arquivo
// de banco (pure Go, sem CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (ou cria) o banco na rota dada e aplica o schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // SQLite é single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close fecha a conexão com o banco.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- ports.Ledger ---

// Append insere um registro no histórico. O banco já nasce com schema, então
// aqui nunca existe a condição "store ausente" dos arquivos planos.
func (s *SQLiteStore) Append(ctx context.Context, rec domain.PriceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_records (recorded_at, subject, subject_key, price, platform)
		VALUES (?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(domain.TimestampLayout),
		rec.Subject,
		subjectKey(rec.Subject),
		rec.Price,
		string(rec.Platform),
	)
	if err != nil {
		return fmt.Errorf("storage.Append: insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) HistoryFor(ctx context.Context, subject string) ([]domain.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, subject, price, platform
		FROM price_records
		WHERE subject_key = ?
		ORDER BY id`,
		subjectKey(subject),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.HistoryFor: query: %w", err)
	}
	defer rows.Close()
	return scanPriceRows(rows)
}

func (s *SQLiteStore) LatestFor(ctx context.Context, subject string) (*domain.PriceRecord, error) {
	history, err := s.HistoryFor(ctx, subject)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	last := history[len(history)-1]
	return &last, nil
}

func (s *SQLiteStore) Subjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT subject_key, subject FROM price_records`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Subjects: query: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]string)
	for rows.Next() {
		var key, name string
		if err := rows.Scan(&key, &name); err != nil {
			return nil, fmt.Errorf("storage.Subjects: scan: %w", err)
		}
		seen[key] = domain.NormalizeSubject(name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subjects := make([]string, 0, len(seen))
	for _, name := range seen {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)
	return subjects, nil
}

func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]domain.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, subject, price, platform
		FROM price_records
		ORDER BY id DESC
		LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.Recent: query: %w", err)
	}
	defer rows.Close()
	return scanPriceRows(rows)
}

// --- ports.PositionBook ---

func (s *SQLiteStore) Open(ctx context.Context, pos domain.TradePosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (id, opened_at, subject, subject_key, buy_price, platform)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pos.ID,
		pos.OpenedAt.UTC().Format(domain.TimestampLayout),
		pos.Subject,
		subjectKey(pos.Subject),
		pos.BuyPrice,
		string(pos.Platform),
	)
	if err != nil {
		return fmt.Errorf("storage.Open: insert: %w", err)
	}
	return nil
}

// LastOpen busca a posição aberta mais recente do jogador. Empate de
// opened_at resolve pela ordem de inserção (rowid).
func (s *SQLiteStore) LastOpen(ctx context.Context, subject string) (domain.TradePosition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, opened_at, subject, buy_price, platform, sell_price, net_profit
		FROM positions
		WHERE subject_key = ? AND sell_price IS NULL
		ORDER BY opened_at DESC, rowid DESC
		LIMIT 1`,
		subjectKey(subject),
	)
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TradePosition{}, domain.ErrNoOpenPosition
	}
	if err != nil {
		return domain.TradePosition{}, fmt.Errorf("storage.LastOpen: %w", err)
	}
	return pos, nil
}

// Settle fecha a posição num update indexado por id.
func (s *SQLiteStore) Settle(ctx context.Context, pos domain.TradePosition) error {
	if pos.SellPrice == nil || pos.NetProfit == nil {
		return fmt.Errorf("storage.Settle: position %q is still open", pos.Subject)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions SET sell_price = ?, net_profit = ?
		WHERE id = ? AND sell_price IS NULL`,
		*pos.SellPrice, *pos.NetProfit, pos.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.Settle: update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage.Settle: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNoOpenPosition
	}
	return nil
}

func (s *SQLiteStore) Summary(ctx context.Context, recentClosed int) (domain.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, opened_at, subject, buy_price, platform, sell_price, net_profit
		FROM positions
		ORDER BY rowid`,
	)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("storage.Summary: query: %w", err)
	}
	defer rows.Close()

	var all []domain.TradePosition
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return domain.Portfolio{}, fmt.Errorf("storage.Summary: scan: %w", err)
		}
		all = append(all, pos)
	}
	if err := rows.Err(); err != nil {
		return domain.Portfolio{}, err
	}
	return buildPortfolio(all, recentClosed), nil
}

// --- helpers internos ---

func subjectKey(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

func scanPriceRows(rows *sql.Rows) ([]domain.PriceRecord, error) {
	var recs []domain.PriceRecord
	for rows.Next() {
		var rec domain.PriceRecord
		var at, platform string
		if err := rows.Scan(&at, &rec.Subject, &rec.Price, &platform); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		rec.Timestamp, _ = time.ParseInLocation(domain.TimestampLayout, at, time.UTC)
		rec.Platform = domain.Platform(platform)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// scanner cobre *sql.Row e *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(row scanner) (domain.TradePosition, error) {
	var pos domain.TradePosition
	var opened, platform string
	var sell, net sql.NullInt64
	if err := row.Scan(&pos.ID, &opened, &pos.Subject, &pos.BuyPrice, &platform, &sell, &net); err != nil {
		return domain.TradePosition{}, err
	}
	pos.OpenedAt, _ = time.ParseInLocation(domain.TimestampLayout, opened, time.UTC)
	pos.Platform = domain.Platform(platform)
	if sell.Valid {
		v := sell.Int64
		pos.SellPrice = &v
	}
	if net.Valid {
		v := net.Int64
		pos.NetProfit = &v
	}
	return pos, nil
}
