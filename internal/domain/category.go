package domain

// Category is a domain route for a structured question.
type Category string

const (
	// CategoryBilling covers billing-code and fee-schedule lookups.
	CategoryBilling Category = "billing"
	// CategoryBenefit covers benefit and eligibility lookups.
	CategoryBenefit Category = "benefit"
	// CategoryFormulary covers drug formulary lookups.
	CategoryFormulary Category = "formulary"
	// CategoryDevice covers durable medical equipment coverage lookups.
	CategoryDevice Category = "device"
	// CategoryUnclassified is the catch-all when no category scores above the
	// minimum; it produces a clarification followup, never a blind guess.
	CategoryUnclassified Category = "unclassified"
)

// Categories lists the routable domain categories in canonical order.
// CategoryUnclassified is excluded: it is a fallback, not a retrieval target.
func Categories() []Category {
	return []Category{CategoryBilling, CategoryBenefit, CategoryFormulary, CategoryDevice}
}

// IsValid reports whether c names a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryBilling, CategoryBenefit, CategoryFormulary, CategoryDevice, CategoryUnclassified:
		return true
	}
	return false
}

// Routable reports whether c can be sent to the retrieval paths.
func (c Category) Routable() bool {
	return c.IsValid() && c != CategoryUnclassified
}
