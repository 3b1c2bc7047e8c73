// Package merging implements the product merge logic: every update source
// (initial fetch, push channel, poll loop) funnels through the same pure
// Merge function, so ordering across sources never matters — only value
// presence does.
package merging

import (
	"github.com/kozydot/findr/pkg/models"
	"github.com/kozydot/findr/pkg/normalizers"
)

// Merge applies a partial update to a product record and returns the merged
// result as a new record. The input record is never mutated, so callers can
// swap the aggregate atomically and consumers never observe a half-merged
// state.
//
// Rules:
//   - scalar fields overwrite only when present on the update; absent fields
//     never erase existing data
//   - retailers are unioned and deduplicated, existing entries first
//
// Merge is idempotent, and commutative for updates touching disjoint
// retailer ids.
func Merge(record models.ProductRecord, update models.PartialUpdate) models.ProductRecord {
	merged := record.Clone()

	if update.Name != nil {
		merged.Name = *update.Name
	}
	if update.Description != nil {
		merged.Description = *update.Description
	}
	if update.Rating != nil {
		merged.Rating = *update.Rating
	}
	if update.Reviews != nil {
		merged.Reviews = *update.Reviews
	}
	if update.ImageURL != nil {
		merged.ImageURL = *update.ImageURL
	}
	if update.Currency != nil {
		merged.Currency = *update.Currency
	}
	if update.Specifications != nil {
		merged.Specifications = append([]models.Specification(nil), update.Specifications...)
	}
	if update.Retailers != nil {
		// Incoming offers are cloned so the merged record never aliases the
		// update's backing arrays.
		incoming := make([]models.RetailerOffer, len(update.Retailers))
		for i, r := range update.Retailers {
			incoming[i] = r.Clone()
		}
		merged.Retailers = DedupRetailers(append(merged.Retailers, incoming...))
	}

	return merged
}

// DedupRetailers collapses a retailer list using two keys in priority order:
//
//  1. exact retailerId match — keep the first occurrence, drop later ones
//  2. normalized-name match — drop entries whose brand key was already seen
//     (all "amazon" variants share one bucket)
//
// An id-only dedup under-merges when the same retailer arrives under
// different ids from different sources; a name-only dedup over-merges
// distinct retailers that happen to normalize alike. Id first, name as the
// tie-break. Input order is preserved for display stability.
func DedupRetailers(offers []models.RetailerOffer) []models.RetailerOffer {
	if len(offers) <= 1 {
		return offers
	}

	seenIDs := make(map[string]bool, len(offers))
	seenBrands := make(map[string]bool, len(offers))
	result := make([]models.RetailerOffer, 0, len(offers))

	for _, offer := range offers {
		if offer.RetailerID != "" && seenIDs[offer.RetailerID] {
			continue
		}

		brand := normalizers.BrandKey(offer.Name)
		if brand != "" && seenBrands[brand] {
			continue
		}

		if offer.RetailerID != "" {
			seenIDs[offer.RetailerID] = true
		}
		if brand != "" {
			seenBrands[brand] = true
		}
		result = append(result, offer)
	}

	return result
}
