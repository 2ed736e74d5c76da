package listings

// Filter returns the listings matching every present criterion, in input
// order. Empty criteria return ls itself. Filter never mutates ls, so
// Filter(Filter(ls, c), c) equals Filter(ls, c).
func Filter(ls []Listing, c Criteria) []Listing {
	if c.IsEmpty() {
		return ls
	}
	out := make([]Listing, 0, len(ls))
	for _, l := range ls {
		if c.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
