package models

import "time"

// Bill processing statuses.
const (
	StatusProcessed = "PROCESSED"
)

// EnergyBill is one ingested bill. Uniqueness is a business rule, not a
// schema constraint: a bill is a duplicate when its bill number matches an
// existing row, or when the (client number, reference month, total amount)
// triple does. Rows are created exactly once per successful ingestion and
// never mutated or deleted by the pipeline.
type EnergyBill struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ClientNumber string `gorm:"index;size:50;not null" json:"client_number"`
	Client       Client `gorm:"foreignKey:ClientNumber;references:ClientNumber" json:"client,omitempty"`

	ReferenceMonth string    `gorm:"size:20;not null" json:"reference_month"`
	DueDate        time.Time `json:"due_date"`
	ConsumptionKwh int       `json:"consumption_kwh"`
	TotalAmount    float64   `json:"total_amount"`

	// StoredFilename is the archive-relative path `clientNumber/storedName`.
	OriginalFilename string `gorm:"size:255" json:"original_filename"`
	StoredFilename   string `gorm:"size:300" json:"stored_filename"`

	Barcode         string    `gorm:"size:100" json:"barcode,omitempty"`
	BillNumber      string    `gorm:"size:50" json:"bill_number,omitempty"`
	PreviousReading string    `gorm:"size:10" json:"previous_reading,omitempty"`
	CurrentReading  string    `gorm:"size:10" json:"current_reading,omitempty"`
	ReadingDate     time.Time `json:"reading_date"`
	EnergyTax       float64   `json:"energy_tax,omitempty"`

	ProcessingStatus string `gorm:"size:20;default:'PROCESSED'" json:"processing_status"`
}
