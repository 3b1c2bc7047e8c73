package search

import "regexp"

// RuleSet carries the domain knowledge the scorer depends on: which leading
// name tokens count as brands, which keywords mark a product as an accessory,
// and which query shapes identify a product family worth boosting.
type RuleSet struct {
	// Brands is the closed set of known brand tokens. A product's brand is
	// its name's first word, and only when that word is in this set.
	Brands map[string]bool

	// AccessoryKeywords mark accessory listings. A hit anywhere in the
	// combined name+description text triggers the accessory penalty.
	AccessoryKeywords []string

	// CategoryPatterns recognize product-family queries. A boost applies
	// when the same pattern matches both the query and the product name.
	CategoryPatterns []*regexp.Regexp
}

// DefaultRuleSet covers the consumer-electronics catalog: phone, laptop, and
// tablet families from the brands the storefront carries.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Brands: map[string]bool{
			"apple":    true,
			"samsung":  true,
			"google":   true,
			"sony":     true,
			"dell":     true,
			"hp":       true,
			"lenovo":   true,
			"asus":     true,
			"lg":       true,
			"xiaomi":   true,
			"oneplus":  true,
			"huawei":   true,
			"anker":    true,
			"jbl":      true,
			"bose":     true,
			"logitech": true,
		},
		AccessoryKeywords: []string{
			"case",
			"cover",
			"charger",
			"cable",
			"adapter",
			"screen protector",
			"protector",
			"stand",
			"mount",
			"holder",
			"strap",
			"sleeve",
			"skin",
			"stylus",
			"dock",
		},
		CategoryPatterns: []*regexp.Regexp{
			// Phone families: "<brand-or-model> <generation-number> [variant]",
			// e.g. "iphone 15 pro", "galaxy s24 ultra", "pixel 8".
			regexp.MustCompile(`\b[a-z]+ ?s?\d{1,3}\b( pro| plus| max| ultra| mini)*`),
			// Laptop/tablet families: "<brand> <family> <variant>",
			// e.g. "macbook pro", "galaxy tab", "surface laptop".
			regexp.MustCompile(`\b(macbook|ipad|galaxy tab|surface|thinkpad|xps|zenbook|spectre)\b( pro| air| plus| go| laptop| studio)*`),
		},
	}
}
