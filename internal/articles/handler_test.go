package articles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Getting Started":           "getting-started",
		"  FAQ: Billing & Invoices": "faq-billing-invoices",
		"already-a-slug":            "already-a-slug",
		"Trailing punctuation!!!":   "trailing-punctuation",
		"123 Numbers first":         "123-numbers-first",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), "slugify(%q)", in)
	}
}
