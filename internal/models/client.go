package models

import "time"

// Client is a customer identified by its distributor-assigned client number
// (the business key — bills reference it, not the surrogate ID). A client is
// created lazily on the first bill that mentions an unseen number and is
// never updated by the ingestion path afterwards: first-seen data wins.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClientNumber       string `gorm:"uniqueIndex;size:50;not null" json:"client_number"`
	InstallationNumber string `gorm:"size:50" json:"installation_number"`
	Name               string `gorm:"size:255" json:"name"`
	Address            string `gorm:"size:500" json:"address"`

	Bills []EnergyBill `gorm:"foreignKey:ClientNumber;references:ClientNumber" json:"bills,omitempty"`
}
