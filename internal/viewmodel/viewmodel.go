package viewmodel

import "strconv"

// LobbyPage holds data for the room list page.
type LobbyPage struct {
	Title string
	Rooms []RoomCard
}

// RoomCard is one room in the lobby list.
type RoomCard struct {
	ID          string
	Name        string
	Description string
	ImageURL    string
	Occupancy   int
	Capacity    int
	CanEnter    bool
	ModelCount  int
	PageURL     string
	StreamURL   string
	WidgetID    string
}

// OccupancyLabel renders occupancy as "n/capacity".
func (c RoomCard) OccupancyLabel() string {
	return strconv.Itoa(c.Occupancy) + "/" + strconv.Itoa(c.Capacity)
}

// Badge is the enter/full marker shown next to the room.
func (c RoomCard) Badge() string {
	if c.CanEnter {
		return "enter"
	}
	return "full"
}

// RoomPage holds data for a single room's page.
type RoomPage struct {
	RoomCard
	APIURL string
	Models []ModelRow
}

// ModelRow is one placed model on the room page.
type ModelRow struct {
	Name     string
	GLBURL   string
	Position string
}
