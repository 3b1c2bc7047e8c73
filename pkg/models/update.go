package models

// PartialUpdate is a sparse ProductRecord delivered by any source (initial
// fetch, push channel, or poll result). A nil field means "no information",
// never "clear the existing value". Retailers, when present, is a list to be
// unioned into the aggregate rather than a replacement.
type PartialUpdate struct {
	Name           *string         `json:"name,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Rating         *float64        `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Reviews        *int            `json:"reviews,omitempty" validate:"omitempty,gte=0"`
	ImageURL       *string         `json:"imageUrl,omitempty"`
	Currency       *string         `json:"currency,omitempty"`
	Specifications []Specification `json:"specifications,omitempty"`
	Retailers      []RetailerOffer `json:"retailers,omitempty" validate:"omitempty,dive"`
}

// IsEmpty reports whether the update carries no information at all.
func (u PartialUpdate) IsEmpty() bool {
	return u.Name == nil &&
		u.Description == nil &&
		u.Rating == nil &&
		u.Reviews == nil &&
		u.ImageURL == nil &&
		u.Currency == nil &&
		u.Specifications == nil &&
		u.Retailers == nil
}

// UpdateFromRecord converts a full record into the equivalent sparse update,
// treating zero-valued scalars as absent. Used to feed the initial fetch
// through the same merge path as push and poll messages.
func UpdateFromRecord(rec ProductRecord) PartialUpdate {
	var u PartialUpdate
	if rec.Name != "" {
		u.Name = &rec.Name
	}
	if rec.Description != "" {
		u.Description = &rec.Description
	}
	if rec.Rating != 0 {
		u.Rating = &rec.Rating
	}
	if rec.Reviews != 0 {
		u.Reviews = &rec.Reviews
	}
	if rec.ImageURL != "" {
		u.ImageURL = &rec.ImageURL
	}
	if rec.Currency != "" {
		u.Currency = &rec.Currency
	}
	u.Specifications = rec.Specifications
	u.Retailers = rec.Retailers
	return u
}
