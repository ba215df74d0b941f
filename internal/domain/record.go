package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TimestampLayout é o formato usado nos arquivos de histórico (sempre UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// Platform identifica em qual mercado o preço foi observado.
type Platform string

const (
	PlatformPS      Platform = "ps"
	PlatformXbox    Platform = "xbox"
	PlatformPC      Platform = "pc"
	PlatformUnknown Platform = "" // registros antigos sem coluna de plataforma
)

// ParsePlatform aceita as tags canônicas e alguns aliases comuns.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ps", "ps5", "playstation", "console":
		return PlatformPS, nil
	case "xbox", "xb":
		return PlatformXbox, nil
	case "pc", "origin":
		return PlatformPC, nil
	case "":
		return PlatformUnknown, nil
	}
	return PlatformUnknown, &ParseError{Field: "plataforma", Value: s}
}

// Label devolve o nome da plataforma para exibição.
func (p Platform) Label() string {
	switch p {
	case PlatformPS:
		return "PlayStation"
	case PlatformXbox:
		return "Xbox"
	case PlatformPC:
		return "PC"
	}
	return "-"
}

// PriceRecord é uma observação de preço registrada no histórico.
// Imutável depois de escrita; a ordem de inserção é a ordem cronológica.
type PriceRecord struct {
	Timestamp time.Time
	Subject   string
	Price     int64
	Platform  Platform
}

var subjectCaser = cases.Title(language.BrazilianPortuguese)

// NormalizeSubject converte o nome digitado para a forma canônica de exibição
// (title case), igual ao que os drafts originais faziam com .title().
func NormalizeSubject(s string) string {
	return subjectCaser.String(strings.Join(strings.Fields(s), " "))
}

// SameSubject compara dois nomes ignorando caixa e espaços nas bordas.
func SameSubject(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ParsePrice converte o texto de um preço em moedas. Entradas podem vir com
// separador de milhar brasileiro ("1.500.000") ou anglo ("1,500,000"); ambos
// são removidos antes da conversão. Valor malformado é *ParseError — nunca
// vira zero silenciosamente.
func ParsePrice(s string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	if cleaned == "" {
		return 0, &ParseError{Field: "preco", Value: s}
	}
	var n int64
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return 0, &ParseError{Field: "preco", Value: s}
		}
		n = n*10 + int64(r-'0')
		if n < 0 { // overflow
			return 0, &ParseError{Field: "preco", Value: s}
		}
	}
	return n, nil
}

// FormatPrice formata com separador de milhar brasileiro: 1500000 → "1.500.000".
// Valores negativos (prejuízo) saem com o sinal antes do primeiro grupo.
func FormatPrice(n int64) string {
	s := fmt.Sprintf("%d", n)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var sb strings.Builder
	head := len(s) % 3
	if head > 0 {
		sb.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s[i : i+3])
	}
	return sign + sb.String()
}
