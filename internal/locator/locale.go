package locator

import "strings"

// Locale selects the label language.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleID Locale = "id"
)

// ParseLocale maps a cookie or config value to a supported locale, defaulting to English.
func ParseLocale(s string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocaleID:
		return LocaleID
	default:
		return LocaleEN
	}
}

// Labels are the user-facing strings of the locator panel.
type Labels struct {
	SearchPlaceholder string
	Search            string
	OpenList          string
	Close             string
	Back              string
	Loading           string
	NoResults         string
	OperatingHours    string
	Fuel              string
	Facility          string
	SurroundingArea   string
	Direction         string
	Pending           string
}

var labels = map[Locale]Labels{
	LocaleEN: {
		SearchPlaceholder: "Search location",
		Search:            "Search",
		OpenList:          "Show list",
		Close:             "Close",
		Back:              "Back to result",
		Loading:           "Loading...",
		NoResults:         "No results found",
		OperatingHours:    "Operating hours",
		Fuel:              "Fuel",
		Facility:          "Facility",
		SurroundingArea:   "Surrounding area",
		Direction:         "Direction",
		Pending:           "Loading details...",
	},
	LocaleID: {
		SearchPlaceholder: "Cari lokasi",
		Search:            "Cari",
		OpenList:          "Tampilkan daftar",
		Close:             "Tutup",
		Back:              "Kembali ke hasil",
		Loading:           "Memuat...",
		NoResults:         "Tidak ada hasil ditemukan",
		OperatingHours:    "Jam operasional",
		Fuel:              "Bahan bakar",
		Facility:          "Fasilitas",
		SurroundingArea:   "Area sekitar",
		Direction:         "Petunjuk arah",
		Pending:           "Memuat detail...",
	},
}

// Labels returns the strings for l.
func (l Locale) Labels() Labels {
	if lb, ok := labels[l]; ok {
		return lb
	}
	return labels[LocaleEN]
}
