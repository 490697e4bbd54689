package domain

import (
	"testing"
	"time"
)

func TestCacheKeyValueEquality(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)

	a := Filter{From: from, To: to, Branch: "centro", Kind: KindVisit}
	b := Filter{From: from, To: to, Branch: "centro", Kind: KindVisit}
	if a.CacheKey() != b.CacheKey() {
		t.Fatalf("equal filters must produce equal keys: %q vs %q", a.CacheKey(), b.CacheKey())
	}

	c := b
	c.Kind = KindCall
	if a.CacheKey() == c.CacheKey() {
		t.Fatalf("different filters must produce different keys")
	}
}

func TestCacheKeyNormalizesZone(t *testing.T) {
	utc := Filter{From: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	offset := Filter{From: time.Date(2026, 8, 1, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))}
	if utc.CacheKey() != offset.CacheKey() {
		t.Fatalf("same instant in different zones must key identically: %q vs %q",
			utc.CacheKey(), offset.CacheKey())
	}
}

func TestMatchesBranch(t *testing.T) {
	all := Filter{}
	scoped := Filter{Branch: "centro"}

	if !all.MatchesBranch("centro") {
		t.Fatalf("unscoped filter must match any branch")
	}
	if !scoped.MatchesBranch("centro") {
		t.Fatalf("scoped filter must match its own branch")
	}
	if scoped.MatchesBranch("norte") {
		t.Fatalf("scoped filter must not match a different branch")
	}
	if !scoped.MatchesBranch("") {
		t.Fatalf("a branch-less mutation can affect any filter")
	}
}
