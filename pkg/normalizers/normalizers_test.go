package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRetailerName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "Noon", "noon"},
		{"dotted suffix", "Amazon.ae", "amazonae"},
		{"spaces and digits", "Sharaf DG 24", "sharafdg"},
		{"already normalized", "carrefour", "carrefour"},
		{"whitespace padding", "  eBay  ", "ebay"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRetailerName(tt.input))
		})
	}
}

func TestBrandKey_AmazonBucket(t *testing.T) {
	variants := []string{"Amazon", "Amazon.ae", "Amazon US", "amazon.com", "AMAZON - Global Store"}
	for _, v := range variants {
		assert.Equal(t, "amazon", BrandKey(v), "variant %q should fold into the amazon bucket", v)
	}
}

func TestBrandKey_DistinctRetailersStayDistinct(t *testing.T) {
	assert.NotEqual(t, BrandKey("Noon"), BrandKey("Jumbo"))
	assert.NotEqual(t, BrandKey("Amazon.ae"), BrandKey("Noon"))
}

func TestRegistry(t *testing.T) {
	fn, ok := Get("nretailer")
	assert.True(t, ok)
	assert.Equal(t, "amazonae", fn("Amazon.ae"))

	// Unknown normalizer passes value through untouched.
	assert.Equal(t, "As-Is", Apply("As-Is", "nope"))
}
