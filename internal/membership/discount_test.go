package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeBalance(sessions int) *Balance {
	return &Balance{
		MembershipID:      7,
		PlanName:          "Monthly 8",
		RemainingSessions: sessions,
	}
}

func TestComputeDiscount_OneSessionTwoSlots(t *testing.T) {
	// Two court slots totaling 300,000 with one session left: the
	// chronologically earlier slot is covered.
	items := []BookingItem{
		{Date: "2026-09-02", TimeSlot: "19:00", Price: 180000},
		{Date: "2026-09-02", TimeSlot: "18:00", Price: 120000},
	}

	d := ComputeDiscount(items, activeBalance(1))

	require.True(t, d.CanUse)
	assert.Equal(t, 1, d.SlotsToDeduct)
	assert.Equal(t, int64(120000), d.DiscountAmount)
	assert.Equal(t, int64(300000), d.OriginalTotal)
	assert.Equal(t, int64(180000), d.DiscountedTotal)
}

func TestComputeDiscount_DeterministicAcrossInputOrder(t *testing.T) {
	a := []BookingItem{
		{Date: "2026-09-03", TimeSlot: "08:00", Price: 100000},
		{Date: "2026-09-01", TimeSlot: "20:00", Price: 150000},
		{Date: "2026-09-01", TimeSlot: "18:00", Price: 200000},
	}
	b := []BookingItem{a[2], a[0], a[1]}
	c := []BookingItem{a[1], a[2], a[0]}

	want := ComputeDiscount(a, activeBalance(2))
	assert.Equal(t, want, ComputeDiscount(b, activeBalance(2)))
	assert.Equal(t, want, ComputeDiscount(c, activeBalance(2)))

	// Earliest two slots are both on 2026-09-01.
	assert.Equal(t, 2, want.SlotsToDeduct)
	assert.Equal(t, int64(350000), want.DiscountAmount)
}

func TestComputeDiscount_DeductsAtMostItemCount(t *testing.T) {
	items := []BookingItem{
		{Date: "2026-09-05", TimeSlot: "10:00", Price: 90000},
	}

	d := ComputeDiscount(items, activeBalance(5))

	assert.Equal(t, 1, d.SlotsToDeduct)
	assert.Equal(t, int64(0), d.DiscountedTotal)
}

func TestComputeDiscount_Ineligible(t *testing.T) {
	items := []BookingItem{
		{Date: "2026-09-05", TimeSlot: "10:00", Price: 90000},
	}

	tests := []struct {
		name    string
		balance *Balance
	}{
		{"no membership", nil},
		{"expired", &Balance{RemainingSessions: 3, IsExpired: true}},
		{"suspended", &Balance{RemainingSessions: 3, IsSuspended: true}},
		{"no sessions left", &Balance{RemainingSessions: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ComputeDiscount(items, tt.balance)
			assert.False(t, d.CanUse)
			assert.Equal(t, 0, d.SlotsToDeduct)
			assert.Equal(t, int64(90000), d.DiscountedTotal)
		})
	}
}

func TestComputeDiscount_EmptyItems(t *testing.T) {
	d := ComputeDiscount(nil, activeBalance(3))
	assert.False(t, d.CanUse)
	assert.Equal(t, int64(0), d.OriginalTotal)
}
