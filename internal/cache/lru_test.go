package cache

import "testing"

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a missing")
	}
	c.Set("c", 3) // evicts b

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	st := c.Stats()
	if st.Evictions != 1 || st.Misses != 1 || st.Hits != 2 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestLRUStructKeysAndDeleteFunc(t *testing.T) {
	type key struct {
		version uint64
		name    string
	}
	c := NewLRU[key, string](10)
	c.Set(key{1, "x"}, "old")
	c.Set(key{1, "y"}, "old")
	c.Set(key{2, "x"}, "new")
	c.Set(key{2, "x"}, "newer")

	if n := c.DeleteFunc(func(k key) bool { return k.version < 2 }); n != 2 {
		t.Fatalf("removed %d", n)
	}
	if v, ok := c.Get(key{2, "x"}); !ok || v != "newer" {
		t.Fatalf("got %q %v", v, ok)
	}
	c.Delete(key{2, "x"})
	if c.Len() != 0 {
		t.Fatalf("len = %d", c.Len())
	}
}

func TestNewLRUMinimumSize(t *testing.T) {
	c := NewLRU[int, int](0)
	c.Set(1, 1)
	c.Set(2, 2)
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}
