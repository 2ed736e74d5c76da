package listings

// Listing is a single rental property.
type Listing struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Address       string   `json:"address"`
	Beds          int      `json:"beds"`
	Baths         int      `json:"baths"`
	Sqft          int      `json:"sqft"`
	Price         int      `json:"price"`
	Images        []string `json:"images"`
	Amenities     []string `json:"amenities"`
	Description   string   `json:"description"`
	AvailableDate string   `json:"availableDate"`
	PetFriendly   bool     `json:"petFriendly"`
	Parking       bool     `json:"parking"`
	Featured      bool     `json:"featured"`
}

// CoverImage returns the first image or "".
func (l Listing) CoverImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// Location renders "City, ST".
func (l Listing) Location() string {
	if l.State == "" {
		return l.City
	}
	return l.City + ", " + l.State
}
