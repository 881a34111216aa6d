package reference

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/tobimartins/servicehub-backend/pkg/errors"
)

func neverExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestGenerateFormat(t *testing.T) {
	gen, err := NewGenerator(Params{Prefix: "shp", Exists: neverExists})
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	ref, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	parts := strings.Split(ref, "-")
	if len(parts) != 3 {
		t.Fatalf("expected 3 segments, got %q", ref)
	}
	if parts[0] != "SHP" {
		t.Fatalf("expected uppercased prefix SHP, got %q", parts[0])
	}
	if len(parts[1]) != 14 {
		t.Fatalf("expected 14-digit timestamp, got %q", parts[1])
	}
	if len(parts[2]) != suffixLength {
		t.Fatalf("expected %d-char suffix, got %q", suffixLength, parts[2])
	}
}

func TestGenerateUniqueness(t *testing.T) {
	gen, err := NewGenerator(Params{Prefix: "SHP", Exists: neverExists})
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		ref, err := gen.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate returned error on iteration %d: %v", i, err)
		}
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference generated: %q", ref)
		}
		seen[ref] = struct{}{}
	}
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	calls := 0
	exists := func(context.Context, string) (bool, error) {
		calls++
		return calls < 3, nil
	}
	gen, err := NewGenerator(Params{Prefix: "SHP", MaxRetries: 5, Exists: exists})
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	if _, err := gen.Generate(context.Background()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 uniqueness checks, got %d", calls)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	calls := 0
	alwaysExists := func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}
	gen, err := NewGenerator(Params{Prefix: "SHP", MaxRetries: 5, Exists: alwaysExists})
	if err != nil {
		t.Fatalf("NewGenerator returned error: %v", err)
	}
	_, err = gen.Generate(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeExhausted {
		t.Fatalf("expected %s, got %v", apperrors.CodeExhausted, err)
	}
	if calls != 5 {
		t.Fatalf("expected exactly 5 attempts, got %d", calls)
	}
}
