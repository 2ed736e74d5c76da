package listings

import (
	"slices"
	"strings"
)

// Catalog is an immutable, indexed set of listings. Accessors return copies
// of the backing slice so callers cannot mutate shared state.
type Catalog struct {
	items  []Listing
	byID   map[string]int
	cities []string
}

func NewCatalog(ls []Listing) *Catalog {
	c := &Catalog{
		items: slices.Clone(ls),
		byID:  make(map[string]int, len(ls)),
	}
	seen := make(map[string]bool)
	for i, l := range c.items {
		if _, dup := c.byID[l.ID]; !dup {
			c.byID[l.ID] = i
		}
		if l.City != "" && !seen[l.City] {
			seen[l.City] = true
			c.cities = append(c.cities, l.City)
		}
	}
	slices.Sort(c.cities)
	return c
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

func (c *Catalog) All() []Listing {
	if c == nil {
		return nil
	}
	return slices.Clone(c.items)
}

func (c *Catalog) ByID(id string) (Listing, bool) {
	if c == nil {
		return Listing{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Listing{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Featured() []Listing {
	return c.collect(func(l Listing) bool { return l.Featured })
}

// ByCity matches the city name exactly, as Criteria.City does.
func (c *Catalog) ByCity(city string) []Listing {
	return c.collect(func(l Listing) bool { return l.City == city })
}

// CityCount counts listings in city, ignoring case.
func (c *Catalog) CityCount(city string) int {
	return len(c.collect(func(l Listing) bool { return strings.EqualFold(l.City, city) }))
}

// Cities returns the unique city names, sorted.
func (c *Catalog) Cities() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.cities)
}

func (c *Catalog) Filter(cr Criteria) []Listing {
	if c == nil {
		return nil
	}
	return slices.Clone(Filter(c.items, cr))
}

func (c *Catalog) collect(keep func(Listing) bool) []Listing {
	if c == nil {
		return nil
	}
	out := make([]Listing, 0, len(c.items))
	for _, l := range c.items {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}
