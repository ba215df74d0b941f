package ports

import (
	"context"

	"github.com/bmartins/futledger/internal/domain"
)

// Ledger persiste o histórico de preços, append-only.
type Ledger interface {
	// Append escreve um registro no final do histórico, criando o store
	// (com cabeçalho) na primeira escrita.
	Append(ctx context.Context, rec domain.PriceRecord) error

	// HistoryFor devolve todos os registros do jogador (comparação sem
	// distinção de caixa), na ordem de inserção. Slice vazio quando o store
	// existe mas não tem linhas do jogador; domain.ErrStoreNotFound quando
	// o store ainda não existe.
	HistoryFor(ctx context.Context, subject string) ([]domain.PriceRecord, error)

	// LatestFor devolve o último registro do jogador, ou nil.
	LatestFor(ctx context.Context, subject string) (*domain.PriceRecord, error)

	// Subjects devolve os jogadores distintos já registrados, normalizados
	// e ordenados para exibição estável.
	Subjects(ctx context.Context) ([]string, error)

	// Recent devolve os últimos n registros de todos os jogadores, do mais
	// recente para o mais antigo.
	Recent(ctx context.Context, n int) ([]domain.PriceRecord, error)

	// Close libera os recursos do store.
	Close() error
}
