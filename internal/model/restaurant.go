package model

import "time"

// Restaurant availability states.  The status is owned by the
// call coordinator: it is busy exactly while the restaurant has
// an ACTIVE call, and available otherwise.  Nothing else writes it.
const (
	StatusAvailable = "available"
	StatusBusy      = "busy"
)

// Restaurant represents a tenant on the kiosk as stored in the
// `restaurants` table.  Bilingual display fields follow the data
// the kiosk renders (English and Arabic panels side by side).
//
// Fields:
//  ID            – primary key identifier.
//  NameEn/NameAr – display names.
//  DescriptionEn/DescriptionAr – short blurbs shown on the kiosk card.
//  MenuImageURL  – menu image shown by the kiosk viewer.
//  Phone         – public contact number.
//  Status        – available | busy; maintained by the coordinator only.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Restaurant struct {
	ID            uint64    `json:"id"`             // restaurants.id
	NameEn        string    `json:"name_en"`        // restaurants.name_en
	NameAr        string    `json:"name_ar"`        // restaurants.name_ar
	DescriptionEn string    `json:"description_en"` // restaurants.description_en
	DescriptionAr string    `json:"description_ar"` // restaurants.description_ar
	MenuImageURL  string    `json:"menu_image_url"` // restaurants.menu_image_url
	Phone         string    `json:"phone"`          // restaurants.phone
	Status        string    `json:"status"`         // restaurants.status
	CreatedAt     time.Time `json:"created_at"`     // restaurants.created_at
	UpdatedAt     time.Time `json:"updated_at"`     // restaurants.updated_at
}
