package reference

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/tobimartins/servicehub-backend/pkg/errors"
)

const (
	suffixBytes    = 8 // 8 random bytes -> 13 base32 chars, truncated to suffixLength
	suffixLength   = 10
	defaultRetries = 5
	timeLayout     = "20060102150405"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ExistsFunc reports whether a candidate reference is already present in the
// ledger.
type ExistsFunc func(ctx context.Context, reference string) (bool, error)

// Generator issues unique human-legible payment references of the form
// PREFIX-YYYYMMDDHHMMSS-XXXXXXXXXX. Uniqueness is checked against the ledger,
// not merely assumed.
type Generator struct {
	prefix     string
	maxRetries int
	exists     ExistsFunc
	now        func() time.Time
}

// Params groups the generator's dependencies.
type Params struct {
	Prefix     string
	MaxRetries int
	Exists     ExistsFunc
}

// NewGenerator builds a reference generator.
func NewGenerator(params Params) (*Generator, error) {
	if params.Prefix == "" {
		return nil, fmt.Errorf("reference prefix is required")
	}
	if params.Exists == nil {
		return nil, fmt.Errorf("exists check is required")
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultRetries
	}
	return &Generator{
		prefix:     strings.ToUpper(params.Prefix),
		maxRetries: maxRetries,
		exists:     params.Exists,
		now:        time.Now,
	}, nil
}

// Generate returns a reference not present in the ledger, re-rolling on
// collision up to the retry bound.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		candidate, err := g.roll()
		if err != nil {
			return "", err
		}
		taken, err := g.exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking reference uniqueness: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.New(apperrors.CodeExhausted,
		fmt.Sprintf("reference generation exhausted after %d attempts", g.maxRetries))
}

func (g *Generator) roll() (string, error) {
	buf := make([]byte, suffixBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	suffix := encoding.EncodeToString(buf)
	if len(suffix) > suffixLength {
		suffix = suffix[:suffixLength]
	}
	return fmt.Sprintf("%s-%s-%s", g.prefix, g.now().UTC().Format(timeLayout), suffix), nil
}
