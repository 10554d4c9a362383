package testfixtures

import (
	"testing"

	"github.com/google/uuid"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("entity")

	first := gen.Next()
	second := gen.Next()

	if first != "entity-1" || second != "entity-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorCountsIssued(t *testing.T) {
	gen := NewIDGenerator("")
	next := gen.NextFunc()
	_, _ = next(), next()

	if got := gen.Issued(); got != 2 {
		t.Fatalf("expected 2 issued ids, got %d", got)
	}
	if got := next(); got != "id-3" {
		t.Fatalf("expected id-3, got %q", got)
	}
}

func TestUUIDGeneratorIsDeterministic(t *testing.T) {
	first := NewUUIDGenerator("booking")
	second := NewUUIDGenerator("booking")

	a, b := first.Next(), second.Next()
	if a != b {
		t.Fatalf("expected identical sequences, got %q and %q", a, b)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("expected a valid UUID, got %q: %v", a, err)
	}
	if next := first.Next(); next == a {
		t.Fatalf("expected a fresh UUID, got %q twice", next)
	}
}
