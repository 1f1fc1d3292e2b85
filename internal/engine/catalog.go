package engine

import "strings"

// CatalogEntry maps a single-character menu key to a category label.
type CatalogEntry struct {
	Key   string
	Label string
}

// catalog is the fixed ordered category menu, shared read-only across all
// senders.
var catalog = []CatalogEntry{
	{"1", "Accommodation"},
	{"2", "Meals & Catering"},
	{"3", "Transport (Flights, Car Rental, Local Taxis)"},
	{"4", "Venue Hire"},
	{"5", "Vendor Payments"},
	{"6", "Staff Hires (Temporary & Permanent)"},
	{"7", "Security & Logistics"},
	{"8", "Printing"},
	{"9", "Other"},
}

var categoryMenuText = buildCategoryMenu()

func buildCategoryMenu() string {
	var b strings.Builder
	b.WriteString("Choose category:")
	for _, e := range catalog {
		b.WriteString("\n")
		b.WriteString(e.Key)
		b.WriteString(". ")
		b.WriteString(e.Label)
	}
	return b.String()
}

func lookupCategory(key string) (string, bool) {
	for _, e := range catalog {
		if e.Key == key {
			return e.Label, true
		}
	}
	return "", false
}
