// Package split computes how a receipt divides between people.
package split

import (
	"github.com/PsychoBear10/ChatSplit/internal/oracle"
)

// PersonTotals maps a person's name to the amount they owe, including
// their proportional share of tax and tip. Iteration order is undefined.
type PersonTotals map[string]float64

// Allocate computes each person's owed total for the given receipt and
// assignments. Pure and deterministic: identical inputs yield identical
// outputs.
//
// Each assigned item's price is divided evenly among its assignees, and
// tax plus tip is distributed in proportion to each person's share of the
// assigned subtotal. Items with no assignees contribute nothing: their
// cost does not appear in anyone's total. Assignments referencing items
// not on the receipt are ignored. If nothing is assigned, the result is
// an empty map.
func Allocate(receipt *oracle.ReceiptData, assignments oracle.Assignments) PersonTotals {
	totals := make(PersonTotals)
	if receipt == nil {
		return totals
	}

	subtotals := make(map[string]float64)
	var assignedSubtotal float64

	for _, item := range receipt.Items {
		people := assignments[item.Description]
		if len(people) == 0 {
			continue
		}

		share := item.Price / float64(len(people))
		assignedSubtotal += item.Price
		for _, person := range people {
			subtotals[person] += share
		}
	}

	taxAndTip := receipt.Tax + receipt.Tip

	for person, subtotal := range subtotals {
		proportion := 0.0
		if assignedSubtotal > 0 {
			proportion = subtotal / assignedSubtotal
		}
		totals[person] = subtotal + taxAndTip*proportion
	}

	return totals
}
