package listings

import (
	"errors"
	"fmt"

	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// ValidationOptions controls which checks ValidateFeed performs.
type ValidationOptions struct {
	// MinListings rejects feeds with fewer listings. 0 disables the check.
	MinListings int

	// RequireVersion rejects feeds without a version string.
	RequireVersion bool
}

func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{MinListings: 1, RequireVersion: true}
}

// ValidateFeed checks a decoded feed before it is swapped into the Store.
// Every problem is reported, joined.
func ValidateFeed(f Feed, opts ValidationOptions) error {
	var errs []error
	if opts.RequireVersion && f.Version == "" {
		errs = append(errs, errors.New("version is empty"))
	}
	if opts.MinListings > 0 && len(f.Listings) < opts.MinListings {
		errs = append(errs, fmt.Errorf("feed has %d listings, minimum is %d", len(f.Listings), opts.MinListings))
	}

	seen := make(map[string]bool, len(f.Listings))
	for i, l := range f.Listings {
		at := fmt.Sprintf("listings[%d]", i)
		if l.ID == "" {
			errs = append(errs, fmt.Errorf("%s: id is empty", at))
		} else if seen[l.ID] {
			errs = append(errs, fmt.Errorf("%s: duplicate id %q", at, l.ID))
		}
		seen[l.ID] = true

		if l.City == "" {
			errs = append(errs, fmt.Errorf("%s: city is empty", at))
		}
		if l.Price <= 0 {
			errs = append(errs, fmt.Errorf("%s: price must be > 0", at))
		}
		if l.Beds <= 0 {
			errs = append(errs, fmt.Errorf("%s: beds must be > 0", at))
		}
		if l.Baths <= 0 {
			errs = append(errs, fmt.Errorf("%s: baths must be > 0", at))
		}
	}
	if len(errs) > 0 {
		return xerrors.Wrap(errors.Join(errs...), "validate feed")
	}
	return nil
}
