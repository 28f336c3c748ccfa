package model

import "time"

// Screen represents a physical kiosk display as stored in the
// `screens` table.  Each screen shows a grid of restaurants and
// acts as the origin of the calls it places, so its ID doubles
// as the origin_id on call records.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – human label for the screen ("Main Hall").
//  GridRows     – rows in the restaurant grid layout.
//  GridColumns  – columns in the restaurant grid layout.
//  ShowLanguage – which language panels the screen renders (en, ar, both).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Screen struct {
	ID           uint64    `json:"id"`            // screens.id
	Name         string    `json:"name"`          // screens.name
	GridRows     uint32    `json:"grid_rows"`     // screens.grid_rows
	GridColumns  uint32    `json:"grid_columns"`  // screens.grid_columns
	ShowLanguage string    `json:"show_language"` // screens.show_language
	CreatedAt    time.Time `json:"created_at"`    // screens.created_at
	UpdatedAt    time.Time `json:"updated_at"`    // screens.updated_at
}

// ScreenAssignment maps a restaurant into a slot on a screen.
// The position column orders restaurants within the grid.
//
// Fields:
//  ScreenID     – screen being configured.
//  RestaurantID – restaurant shown in the slot.
//  Position     – zero-based slot index within the grid.
type ScreenAssignment struct {
	ScreenID     uint64 `json:"screen_id"`     // screen_assignments.screen_id
	RestaurantID uint64 `json:"restaurant_id"` // screen_assignments.restaurant_id
	Position     uint32 `json:"position"`      // screen_assignments.position
}
