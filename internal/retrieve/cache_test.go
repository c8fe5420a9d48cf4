package retrieve

import "testing"

func TestCacheKey_StableAndOrderIndependentSources(t *testing.T) {
	w := Window{}
	k1 := cacheKey("inflation report", w, "en", []string{"reuters.com", "bbc.com"}, 6, true)
	k2 := cacheKey("inflation report", w, "en", []string{"bbc.com", "reuters.com"}, 6, true)
	if k1 != k2 {
		t.Fatalf("expected source-order-independent cache key, got %q vs %q", k1, k2)
	}
}

func TestCacheKey_DiffersOnKFinalOrRerank(t *testing.T) {
	w := Window{}
	base := cacheKey("inflation report", w, "en", nil, 6, true)
	diffK := cacheKey("inflation report", w, "en", nil, 10, true)
	diffRerank := cacheKey("inflation report", w, "en", nil, 6, false)
	if base == diffK || base == diffRerank {
		t.Fatalf("expected distinct cache keys for different k_final/use_rerank")
	}
}

func TestCache_NilClientIsNoop(t *testing.T) {
	var c *Cache
	if _, ok := c.Get(nil, "q", Window{}, "en", nil, 6, true); ok {
		t.Fatalf("expected nil cache to always miss")
	}
	if err := c.Set(nil, "q", Window{}, "en", nil, 6, true, nil); err != nil {
		t.Fatalf("expected nil cache Set to be a no-op, got %v", err)
	}
}
