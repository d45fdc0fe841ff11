package membership

import "sort"

// BookingItem is one court-slot line item of a booking, as seen by the
// discount rule. Date is "2006-01-02" and TimeSlot the slot's start, e.g.
// "18:00", so lexicographic order matches chronological order.
type BookingItem struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Price    int64  `json:"price"`
}

type Discount struct {
	CanUse          bool  `json:"can_use"`
	SlotsToDeduct   int   `json:"slots_to_deduct"`
	DiscountAmount  int64 `json:"discount_amount"`
	OriginalTotal   int64 `json:"original_total"`
	DiscountedTotal int64 `json:"discounted_total"`
}

// ComputeDiscount applies the membership session rule: one remaining session
// covers one slot, and the covered slots are always the chronologically
// earliest ones regardless of input order or individual prices. It is a pure
// function; the checkout recomputes it authoritatively and any
// client-side call is preview only.
func ComputeDiscount(items []BookingItem, balance *Balance) Discount {
	var originalTotal int64
	for _, item := range items {
		originalTotal += item.Price
	}

	result := Discount{
		OriginalTotal:   originalTotal,
		DiscountedTotal: originalTotal,
	}

	if balance == nil || balance.IsExpired || balance.IsSuspended || balance.RemainingSessions <= 0 {
		return result
	}
	if len(items) == 0 {
		return result
	}

	sorted := make([]BookingItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].TimeSlot < sorted[j].TimeSlot
	})

	slotsToDeduct := balance.RemainingSessions
	if len(sorted) < slotsToDeduct {
		slotsToDeduct = len(sorted)
	}

	var discountAmount int64
	for _, item := range sorted[:slotsToDeduct] {
		discountAmount += item.Price
	}

	result.CanUse = true
	result.SlotsToDeduct = slotsToDeduct
	result.DiscountAmount = discountAmount
	result.DiscountedTotal = originalTotal - discountAmount
	return result
}
