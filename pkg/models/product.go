// Package models defines the product aggregate and the messages that feed it.
package models

// PriceHistoryPoint is a single observed price for a retailer, newest-first
// within RetailerOffer.PriceHistory by convention.
type PriceHistoryPoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Specification is a single name/value row from a product spec sheet.
type Specification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RetailerOffer is one retailer's listing for a product. RetailerID is the
// identity key; Name participates in dedup via its normalized brand key.
type RetailerOffer struct {
	RetailerID   string              `json:"retailerId" validate:"required"`
	Name         string              `json:"name" validate:"required"`
	CurrentPrice float64             `json:"currentPrice" validate:"gte=0"`
	InStock      bool                `json:"inStock"`
	ShippingCost float64             `json:"shippingCost,omitempty" validate:"gte=0"`
	ProductURL   string              `json:"productUrl,omitempty"`
	PriceHistory []PriceHistoryPoint `json:"priceHistory,omitempty"`
}

// Clone returns a deep copy of the offer, including its price history.
func (r RetailerOffer) Clone() RetailerOffer {
	out := r
	if r.PriceHistory != nil {
		out.PriceHistory = make([]PriceHistoryPoint, len(r.PriceHistory))
		copy(out.PriceHistory, r.PriceHistory)
	}
	return out
}

// ProductRecord is the aggregate view of one product, assembled by merging
// partial updates from the initial fetch, the push channel, and the poll loop.
// Scalar fields stay at their zero value until some source populates them.
type ProductRecord struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Description    string          `json:"description,omitempty"`
	Rating         float64         `json:"rating,omitempty"`
	Reviews        int             `json:"reviews,omitempty"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	Currency       string          `json:"currency,omitempty"`
	Specifications []Specification `json:"specifications,omitempty"`
	Retailers      []RetailerOffer `json:"retailers"`
}

// Clone returns a deep copy so a snapshot handed to a consumer can never be
// mutated by a later merge.
func (p ProductRecord) Clone() ProductRecord {
	out := p
	if p.Specifications != nil {
		out.Specifications = make([]Specification, len(p.Specifications))
		copy(out.Specifications, p.Specifications)
	}
	if p.Retailers != nil {
		out.Retailers = make([]RetailerOffer, len(p.Retailers))
		for i, r := range p.Retailers {
			out.Retailers[i] = r.Clone()
		}
	}
	return out
}

// ProductSummary is the searchable view of a product. The search engine treats
// missing fields as empty strings rather than failing the ranking pass.
type ProductSummary struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Reviews     int     `json:"reviews,omitempty"`
}
