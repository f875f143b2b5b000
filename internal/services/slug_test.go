package services

import "testing"

func TestToBaseSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Fresh Veggies", "fresh-veggies"},
		{"  Bob's  Bakery!  ", "bob-s-bakery"},
		{"Caffè 24/7", "caffè-24-7"},
		{"---", "item"},
		{"", "item"},
	}
	for _, c := range cases {
		if got := toBaseSlug(c.in); got != c.want {
			t.Fatalf("toBaseSlug(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestUniqueSlug(t *testing.T) {
	if got := uniqueSlug("shop", nil); got != "shop" {
		t.Fatalf("expected base slug when free, got %q", got)
	}
	if got := uniqueSlug("shop", []string{"shop"}); got != "shop-1" {
		t.Fatalf("expected shop-1, got %q", got)
	}
	if got := uniqueSlug("shop", []string{"shop", "shop-1", "shop-2"}); got != "shop-3" {
		t.Fatalf("expected shop-3, got %q", got)
	}
	if got := uniqueSlug("shop", []string{"shop", "shop-2"}); got != "shop-1" {
		t.Fatalf("expected the first free suffix, got %q", got)
	}
}
