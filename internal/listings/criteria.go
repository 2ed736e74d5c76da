package listings

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Criteria is a listing filter. A nil field imposes no constraint. Zero
// numbers and false booleans also impose none, so a form that posts
// minBeds=0 or parking=false behaves like an absent field.
type Criteria struct {
	City        *string
	MinBeds     *int
	MaxBeds     *int
	MinBaths    *int
	MaxBaths    *int
	MinPrice    *int
	MaxPrice    *int
	PetFriendly *bool
	Parking     *bool
}

// Query parameter names, shared by the browse page form and the JSON API.
const (
	ParamCity        = "city"
	ParamMinBeds     = "minBeds"
	ParamMaxBeds     = "maxBeds"
	ParamMinBaths    = "minBaths"
	ParamMaxBaths    = "maxBaths"
	ParamMinPrice    = "minPrice"
	ParamMaxPrice    = "maxPrice"
	ParamPetFriendly = "petFriendly"
	ParamParking     = "parking"
)

func Ptr[T any](v T) *T { return &v }

// IsEmpty reports whether c constrains nothing.
func (c Criteria) IsEmpty() bool {
	return c.city() == "" &&
		c.intVal(c.MinBeds) == 0 && c.intVal(c.MaxBeds) == 0 &&
		c.intVal(c.MinBaths) == 0 && c.intVal(c.MaxBaths) == 0 &&
		c.intVal(c.MinPrice) == 0 && c.intVal(c.MaxPrice) == 0 &&
		!c.boolVal(c.PetFriendly) && !c.boolVal(c.Parking)
}

// Match reports whether l satisfies every present criterion.
func (c Criteria) Match(l Listing) bool {
	if city := c.city(); city != "" && l.City != city {
		return false
	}
	if v := c.intVal(c.MinBeds); v != 0 && l.Beds < v {
		return false
	}
	if v := c.intVal(c.MaxBeds); v != 0 && l.Beds > v {
		return false
	}
	if v := c.intVal(c.MinBaths); v != 0 && l.Baths < v {
		return false
	}
	if v := c.intVal(c.MaxBaths); v != 0 && l.Baths > v {
		return false
	}
	if v := c.intVal(c.MinPrice); v != 0 && l.Price < v {
		return false
	}
	if v := c.intVal(c.MaxPrice); v != 0 && l.Price > v {
		return false
	}
	if c.boolVal(c.PetFriendly) && !l.PetFriendly {
		return false
	}
	if c.boolVal(c.Parking) && !l.Parking {
		return false
	}
	return true
}

func (c Criteria) city() string {
	if c.City == nil {
		return ""
	}
	return *c.City
}

func (Criteria) intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (Criteria) boolVal(p *bool) bool { return p != nil && *p }

// CriteriaFromQuery parses the browse/API query string. Unknown parameters
// are ignored, blank values and "all"/"any" mean no constraint.
func CriteriaFromQuery(q url.Values) (Criteria, error) {
	var c Criteria
	var errs []error

	if v := strings.TrimSpace(q.Get(ParamCity)); v != "" && !strings.EqualFold(v, "all") {
		c.City = &v
	}
	ints := []struct {
		name string
		dst  **int
	}{
		{ParamMinBeds, &c.MinBeds},
		{ParamMaxBeds, &c.MaxBeds},
		{ParamMinBaths, &c.MinBaths},
		{ParamMaxBaths, &c.MaxBaths},
		{ParamMinPrice, &c.MinPrice},
		{ParamMaxPrice, &c.MaxPrice},
	}
	for _, f := range ints {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" || strings.EqualFold(raw, "any") {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s: want a non-negative integer, got %q", f.name, raw))
			continue
		}
		*f.dst = &n
	}
	bools := []struct {
		name string
		dst  **bool
	}{
		{ParamPetFriendly, &c.PetFriendly},
		{ParamParking, &c.Parking},
	}
	for _, f := range bools {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		// checkbox inputs post "on"
		if raw == "on" {
			raw = "true"
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: want a boolean, got %q", f.name, raw))
			continue
		}
		*f.dst = &b
	}
	if err := errors.Join(errs...); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// Query encodes the constraining fields of c. CriteriaFromQuery(c.Query())
// yields criteria that match exactly the same listings.
func (c Criteria) Query() url.Values {
	q := url.Values{}
	if v := c.city(); v != "" {
		q.Set(ParamCity, v)
	}
	for name, p := range map[string]*int{
		ParamMinBeds: c.MinBeds, ParamMaxBeds: c.MaxBeds,
		ParamMinBaths: c.MinBaths, ParamMaxBaths: c.MaxBaths,
		ParamMinPrice: c.MinPrice, ParamMaxPrice: c.MaxPrice,
	} {
		if v := c.intVal(p); v != 0 {
			q.Set(name, strconv.Itoa(v))
		}
	}
	if c.boolVal(c.PetFriendly) {
		q.Set(ParamPetFriendly, "true")
	}
	if c.boolVal(c.Parking) {
		q.Set(ParamParking, "true")
	}
	return q
}
