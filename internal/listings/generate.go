package listings

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// DefaultCount is the size of the generated set served when no feed exists.
const DefaultCount = 25

const featuredCount = 6

type cityState struct{ city, state string }

var generatorCities = []cityState{
	{"Austin", "TX"},
	{"Denver", "CO"},
	{"Miami", "FL"},
	{"Seattle", "WA"},
	{"Nashville", "TN"},
	{"Portland", "OR"},
	{"Charlotte", "NC"},
	{"San Diego", "CA"},
}

var premiumCities = map[string]bool{"San Diego": true, "Miami": true}

var streetNames = []string{
	"Oak Street", "Maple Avenue", "Cedar Lane", "Pine Road", "Elm Drive",
	"Willow Way", "Birch Boulevard", "Cherry Circle", "Aspen Court", "Spruce Street",
	"Highland Park", "Riverside Drive", "Mountain View", "Sunset Boulevard", "Ocean Avenue",
}

var amenities = []string{
	"Central AC", "In-unit Washer/Dryer", "Hardwood Floors", "Stainless Steel Appliances",
	"Granite Countertops", "Walk-in Closet", "Balcony", "Fitness Center", "Pool",
	"Rooftop Deck", "Concierge", "EV Charging", "Smart Home Features", "High Ceilings",
}

var houseImages = []string{
	"https://images.unsplash.com/photo-1564013799919-ab600027ffc6?w=800&q=80",
	"https://images.unsplash.com/photo-1600596542815-ffad4c1539a9?w=800&q=80",
	"https://images.unsplash.com/photo-1600585154340-be6161a56a0c?w=800&q=80",
	"https://images.unsplash.com/photo-1512917774080-9991f1c4c750?w=800&q=80",
	"https://images.unsplash.com/photo-1613977257363-707ba9348227?w=800&q=80",
	"https://images.unsplash.com/photo-1605276374104-dee2a0ed3cd6?w=800&q=80",
	"https://images.unsplash.com/photo-1600047509807-ba8f99d2cdde?w=800&q=80",
	"https://images.unsplash.com/photo-1600566753190-17f0baa2a6c3?w=800&q=80",
	"https://images.unsplash.com/photo-1600573472592-401b489a3cdc?w=800&q=80",
	"https://images.unsplash.com/photo-1599427303058-f04cbcf4756f?w=800&q=80",
}

var apartmentImages = []string{
	"https://images.unsplash.com/photo-1545324418-cc1a3fa10c00?w=800&q=80",
	"https://images.unsplash.com/photo-1502672260266-1c1ef2d93688?w=800&q=80",
	"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800&q=80",
	"https://images.unsplash.com/photo-1522708323590-d24dbb6b0267?w=800&q=80",
	"https://images.unsplash.com/photo-1493809842364-78817add7ffb?w=800&q=80",
}

// Generate builds n mock listings. The same seed and now always produce the
// same listings; ids are listing-1..listing-n and the first six are featured.
func Generate(n int, seed int64, now time.Time) []Listing {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]Listing, n)
	for i := range out {
		out[i] = generateOne(rng, i, today)
	}
	return out
}

func generateOne(rng *rand.Rand, index int, today time.Time) Listing {
	loc := generatorCities[index%len(generatorCities)]
	beds := rng.IntN(4) + 1
	baths := max(1, beds-rng.IntN(2))
	sqft := 600 + beds*350 + rng.IntN(400)
	base := 1800
	if premiumCities[loc.city] {
		base = 2500
	}
	price := base + beds*400 + rng.IntN(600)
	address := fmt.Sprintf("%d %s", rng.IntN(9000)+100, streetNames[rng.IntN(len(streetNames))])

	kind, noun := "Apartment", "apartment"
	if beds > 2 {
		kind, noun = "House", "home"
	}

	images := pick(rng, append(append([]string{}, houseImages...), apartmentImages...), 4)
	ams := pick(rng, amenities, 4+rng.IntN(4))
	available := today.AddDate(0, 0, rng.IntN(60))

	desc := fmt.Sprintf("Beautiful %d-bedroom %s in the heart of %s. This stunning property features modern finishes, "+
		"an open floor plan, and is located in one of the most desirable neighborhoods. Perfect for those seeking comfort and convenience.",
		beds, noun, loc.city)

	return Listing{
		ID:            fmt.Sprintf("listing-%d", index+1),
		Title:         fmt.Sprintf("%dBR %s in %s", beds, kind, loc.city),
		City:          loc.city,
		State:         loc.state,
		Address:       address,
		Beds:          beds,
		Baths:         baths,
		Sqft:          sqft,
		Price:         price,
		Images:        images,
		Amenities:     ams,
		Description:   desc,
		AvailableDate: available.Format(time.DateOnly),
		PetFriendly:   rng.Float64() > 0.4,
		Parking:       rng.Float64() > 0.3,
		Featured:      index < featuredCount,
	}
}

// pick returns count distinct items from src in random order. src is not modified.
func pick(rng *rand.Rand, src []string, count int) []string {
	cp := append([]string(nil), src...)
	rng.Shuffle(len(cp), func(i, j int) { cp[i], cp[j] = cp[j], cp[i] })
	return cp[:min(count, len(cp))]
}
