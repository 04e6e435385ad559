// Package mixer computes which physical mixers may take a batch.
//
// Mixer numbers encode the technology generation: numbers up to
// LegacyMaxNumber are legacy mixers, the rest are new.
package mixer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"batchtrack.io/tracker/internal/domain"
)

// LegacyMaxNumber is the highest legacy mixer number.
const LegacyMaxNumber = 8

// NamePrefix precedes the mixer number in display names.
const NamePrefix = "Mixer_"

// excluded pairs never have an eligible mixer.
var excluded = map[domain.Product]domain.Technology{
	domain.ProductDishware: domain.TechnologyNew,
	domain.ProductAS:       domain.TechnologyLegacy,
}

// Policy maps products to their eligible mixer numbers.
type Policy struct {
	table    map[domain.Product][]int
	universe []int
}

// NewPolicy builds a policy from a product → mixer numbers table. Product keys
// are matched case-insensitively against the known products.
func NewPolicy(table map[string][]int) (*Policy, error) {
	p := &Policy{table: make(map[domain.Product][]int, len(table))}
	seen := make(map[int]struct{})
	for key, numbers := range table {
		product, ok := domain.ParseProduct(key)
		if !ok {
			return nil, fmt.Errorf("unknown product %q in mixer table", key)
		}
		nums := make([]int, 0, len(numbers))
		for _, n := range numbers {
			if n <= 0 {
				return nil, fmt.Errorf("product %s: mixer number %d must be positive", product, n)
			}
			nums = append(nums, n)
			seen[n] = struct{}{}
		}
		sort.Ints(nums)
		p.table[product] = nums
	}
	for n := range seen {
		p.universe = append(p.universe, n)
	}
	sort.Ints(p.universe)
	return p, nil
}

// AvailableMixers returns the display names of mixers eligible for product on
// technology, sorted ascending by number. Unknown inputs yield an empty slice.
func (p *Policy) AvailableMixers(product domain.Product, technology domain.Technology) []string {
	numbers := p.Available(product, technology)
	names := make([]string, len(numbers))
	for i, n := range numbers {
		names[i] = Name(n)
	}
	return names
}

// Available is AvailableMixers without rendering names.
func (p *Policy) Available(product domain.Product, technology domain.Technology) []int {
	if t, ok := excluded[product]; ok && t == technology {
		return []int{}
	}
	out := []int{}
	for _, n := range p.table[product] {
		switch technology {
		case domain.TechnologyLegacy:
			if n <= LegacyMaxNumber {
				out = append(out, n)
			}
		case domain.TechnologyNew:
			if n > LegacyMaxNumber {
				out = append(out, n)
			}
		}
	}
	return out
}

// IsEligible reports whether the named mixer may take product on technology.
func (p *Policy) IsEligible(product domain.Product, technology domain.Technology, name string) bool {
	n, ok := Number(name)
	if !ok {
		return false
	}
	for _, m := range p.Available(product, technology) {
		if m == n {
			return true
		}
	}
	return false
}

// Allowed returns the configured numbers for product.
func (p *Policy) Allowed(product domain.Product) []int {
	return append([]int(nil), p.table[product]...)
}

// Universe returns every configured mixer number, ascending.
func (p *Policy) Universe() []int {
	return append([]int(nil), p.universe...)
}

// Name renders a mixer number as its display name.
func Name(n int) string {
	return NamePrefix + strconv.Itoa(n)
}

// Number parses a display name back to its mixer number. Leading zeros are
// accepted, signs are not.
func Number(name string) (int, bool) {
	s, ok := strings.CutPrefix(name, NamePrefix)
	if !ok || s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Canonical returns the display name of the mixer name refers to, so that
// "Mixer_03" and "Mixer_3" compare equal. Unparseable names are returned as is.
func Canonical(name string) string {
	n, ok := Number(name)
	if !ok {
		return name
	}
	return Name(n)
}
