package models

// RoomStatus is the cached occupancy flag of a room.
type RoomStatus string

const (
	RoomStatusFree     RoomStatus = "free"
	RoomStatusOccupied RoomStatus = "occupied"
)

// RoomKey is the composite identity of a room.
type RoomKey struct {
	Number int    `db:"room_number" json:"room_number" validate:"required,gt=0"`
	Type   string `db:"room_type" json:"room_type" validate:"required"`
}

// Less orders room keys by number, then type. Room rows are locked in this order.
func (k RoomKey) Less(o RoomKey) bool {
	if k.Number != o.Number {
		return k.Number < o.Number
	}
	return k.Type < o.Type
}

// Room is a bookable physical room.
type Room struct {
	RoomKey
	Status RoomStatus `db:"status" json:"status"`
}

// Occupied reports whether the room is flagged as occupied.
func (r Room) Occupied() bool {
	return r.Status == RoomStatusOccupied
}
