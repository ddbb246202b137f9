package bonus

import "strings"

var euroCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "CY": {}, "DE": {}, "EE": {}, "ES": {}, "FI": {}, "FR": {},
	"GR": {}, "HR": {}, "IE": {}, "IT": {}, "LT": {}, "LU": {}, "LV": {}, "MT": {},
	"NL": {}, "PT": {}, "SI": {}, "SK": {},
}

// CurrencyForCountry maps an ISO 3166-1 alpha-2 country code (as sent in the
// CF-IPCountry header) to the default checkout currency.
func CurrencyForCountry(country string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	switch c {
	case "IN":
		return "INR"
	case "GB":
		return "GBP"
	case "CA":
		return "CAD"
	case "AU":
		return "AUD"
	case "SG":
		return "SGD"
	case "AE":
		return "AED"
	}
	if _, ok := euroCountries[c]; ok {
		return "EUR"
	}
	return "USD"
}
