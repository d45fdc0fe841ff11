package slot

import "time"

type ResourceType string

const (
	ResourceCourt   ResourceType = "court"
	ResourceCoach   ResourceType = "coach"
	ResourceBallboy ResourceType = "ballboy"
)

func (rt ResourceType) Valid() bool {
	switch rt {
	case ResourceCourt, ResourceCoach, ResourceBallboy:
		return true
	}
	return false
}

// Slot is a bookable window of time for a court, coach or ballboy. At most
// one non-cancelled booking may hold a slot at a time.
type Slot struct {
	ID           int          `db:"id" json:"id"`
	ResourceType ResourceType `db:"resource_type" json:"resource_type"`
	ResourceID   int          `db:"resource_id" json:"resource_id"`
	StartTime    time.Time    `db:"start_time" json:"start_time"`
	EndTime      time.Time    `db:"end_time" json:"end_time"`
	Price        int64        `db:"price" json:"price"`
	IsAvailable  bool         `db:"is_available" json:"is_available"`
	BookingID    *int         `db:"booking_id" json:"booking_id,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// InventoryItem is rentable equipment tracked by quantity instead of a time
// window.
type InventoryItem struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Quantity  int       `db:"quantity" json:"quantity"`
	UnitPrice int64     `db:"unit_price" json:"unit_price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReleasedSlots reports how many slots of each resource type a release
// actually flipped back to available.
type ReleasedSlots struct {
	CourtSlots   int `json:"court_slots"`
	CoachSlots   int `json:"coach_slots"`
	BallboySlots int `json:"ballboy_slots"`
}

func (r ReleasedSlots) Total() int {
	return r.CourtSlots + r.CoachSlots + r.BallboySlots
}
