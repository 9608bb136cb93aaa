package merge

import (
	"math"
	"strconv"

	"github.com/benefitlens/coverquery/internal/domain"
)

// amountEpsilon absorbs float formatting noise when comparing fees that
// were parsed back out of prose.
const amountEpsilon = 0.005

// DetectConflicts compares each structured field against what the item's
// own passages independently assert. Any mismatch produces a conflict;
// resolution policy belongs to the consuming layer, never here.
func DetectConflicts(items []domain.MergedItem) []domain.Conflict {
	var conflicts []domain.Conflict
	for i := range items {
		conflicts = append(conflicts, detectItemConflicts(&items[i])...)
	}
	return conflicts
}

func detectItemConflicts(item *domain.MergedItem) []domain.Conflict {
	rec := item.Record()
	if rec == nil {
		return nil // nothing structured to disagree with
	}

	var conflicts []domain.Conflict
	for _, p := range item.Passages() {
		a := extractAssertion(p.Text())

		if rec.Covered() != nil && a.covered != nil && *rec.Covered() != *a.covered {
			conflicts = append(conflicts, domain.NewConflict(
				"covered",
				strconv.FormatBool(*rec.Covered()),
				strconv.FormatBool(*a.covered),
				"passage "+p.Loc()+" contradicts the structured coverage flag",
			))
		}

		if rec.Amount() != nil && a.amount != nil &&
			math.Abs(*rec.Amount()-*a.amount) > amountEpsilon {
			conflicts = append(conflicts, domain.NewConflict(
				"amount",
				formatAmount(*rec.Amount()),
				formatAmount(*a.amount),
				"passage "+p.Loc()+" states a different amount",
			))
		}
	}
	return conflicts
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
