package domain

import (
	"errors"
	"fmt"
)

// Falhas nomeadas que o core expõe para a camada de conversa. Nada aqui é
// fatal: o chamador decide o que mostrar ao usuário.
var (
	// ErrStoreNotFound: o arquivo de histórico ainda não existe. Nos caminhos
	// de leitura é "histórico vazio", não um erro duro.
	ErrStoreNotFound = errors.New("store not found")

	// ErrNoOpenPosition: pedido de venda para um jogador sem compra em aberto.
	ErrNoOpenPosition = errors.New("no open position")
)

// ParseError indica um campo numérico (ou enumerado) que não pôde ser
// convertido depois da limpeza de separadores.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: invalid value %q", e.Field, e.Value)
}

// IsParseError reporta se err é (ou envolve) um *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
