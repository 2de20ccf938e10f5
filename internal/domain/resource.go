package domain

// Resource is a bookable room (or fixed equipment such as an x-ray bay) at a
// clinic location. Resources are immutable for the duration of a scheduling
// session; room management happens upstream.
type Resource struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	RoomNumber string `json:"room_number,omitempty"`
	Capacity   int    `json:"capacity,omitempty"`
}
