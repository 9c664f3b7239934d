package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"banking-ledger/internal/config"
)

// NumberGenerator выдает кандидатов в номера счетов. Уникальность проверяет хранилище.
type NumberGenerator interface {
	Generate() (string, error)
}

// AccountNumberGenerator собирает номер из одного из допустимых префиксов и случайных цифр
type AccountNumberGenerator struct {
	prefixes []string
	length   int
	random   io.Reader
}

func NewAccountNumberGenerator(rules config.Rules) *AccountNumberGenerator {
	return &AccountNumberGenerator{
		prefixes: rules.AccountNumberPrefixes,
		length:   rules.AccountNumberLength,
		random:   rand.Reader,
	}
}

func (g *AccountNumberGenerator) Generate() (string, error) {
	if len(g.prefixes) == 0 {
		return "", errors.New("no account number prefixes configured")
	}

	i, err := g.intn(len(g.prefixes))
	if err != nil {
		return "", err
	}
	prefix := g.prefixes[i]
	if len(prefix) >= g.length {
		return "", fmt.Errorf("account number prefix %q does not fit length %d", prefix, g.length)
	}

	var b strings.Builder
	b.Grow(g.length)
	b.WriteString(prefix)
	for b.Len() < g.length {
		d, err := g.intn(10)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d))
	}
	return b.String(), nil
}

func (g *AccountNumberGenerator) intn(n int) (int, error) {
	v, err := rand.Int(g.random, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random digits: %w", err)
	}
	return int(v.Int64()), nil
}
