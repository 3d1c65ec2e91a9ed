package extract

import "sync"

// ExtractedBillData is the candidate record produced by one extraction
// attempt over a bill's raw text. It is never persisted as-is: the
// ingestion pipeline validates it and maps it onto the stored models.
// Missing fields are zero values, never errors.
type ExtractedBillData struct {
	ClientNumber       string
	ClientName         string
	Address            string
	InstallationNumber string

	ReferenceMonth string
	DueDate        string // DD/MM/YYYY as printed on the bill
	ConsumptionKwh int
	TotalAmount    float64
	Barcode        string

	BillNumber      string
	PreviousReading string
	CurrentReading  string
	EnergyTax       float64
}

// Extractor turns raw bill text into a candidate record. Implementations
// must be pure and total: no I/O, no errors, first anchor occurrence wins.
// Alternate bill layouts are supported by registering another rule set.
type Extractor interface {
	Extract(text string) ExtractedBillData
}

var (
	mu       sync.RWMutex
	registry = map[string]Extractor{}
)

// Register makes an extractor available under name, replacing any previous
// registration for that name.
func Register(name string, e Extractor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = e
}

// Lookup returns the extractor registered under name.
func Lookup(name string) (Extractor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := registry[name]
	return e, ok
}

// Default returns the stock rule set.
func Default() Extractor {
	e, _ := Lookup("default")
	return e
}
