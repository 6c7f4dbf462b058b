package history_test

import (
	"testing"

	"bugfeature-quiz-service/internal/history"
)

func TestAppendDecodeRoundTrip(t *testing.T) {
	field := history.Append(history.Append("", "a"), "b")
	if field != "a, b" {
		t.Fatalf("expected encoded field %q, got %q", "a, b", field)
	}
	got := history.Decode(field)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestDecodeEmpty(t *testing.T) {
	if got := history.Decode(""); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}

func TestDecodeDropsEmptyTokens(t *testing.T) {
	got := history.Decode("a, , b")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
}

func TestContains(t *testing.T) {
	field := history.Append(history.Append("", "q-1"), "q-2")
	if !history.Contains(field, "q-1") {
		t.Fatalf("expected q-1 in %q", field)
	}
	if history.Contains(field, "q-3") {
		t.Fatalf("did not expect q-3 in %q", field)
	}
	// A recorded ident must never match a substring of another.
	if history.Contains(field, "q") {
		t.Fatalf("did not expect bare q in %q", field)
	}
}

func TestAppendDoesNotDeduplicate(t *testing.T) {
	field := history.Append(history.Append("", "x"), "x")
	if got := history.Decode(field); len(got) != 2 {
		t.Fatalf("append must not deduplicate, got %v", got)
	}
}
