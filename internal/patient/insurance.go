package patient

import (
	"strings"

	"github.com/rehacentrum/booking-engine/internal/textfold"
)

// Known insurance carriers.
const (
	CarrierVsZP   = "VšZP"
	CarrierDovera = "Dôvera"
	CarrierUnion  = "Union"
)

type carrier struct {
	official   string
	variations []string
}

// Variations are stored folded. Several are speech-recognition misreads.
var carriers = []carrier{
	{
		official: CarrierVsZP,
		variations: []string{
			"vszp", "vseobecna zdravotna poistovna", "vseobecna", "vseobecka",
			"vseobecna poistovna", "verejna", "statna",
			"vasezepe", "vaszepe", "vszepe", "veszepe", "vsezp", "vzp",
		},
	},
	{
		official: CarrierDovera,
		variations: []string{
			"dovera", "doviera", "dovera zdravotna poistovna", "dovera zdravotna",
			"do overa", "doovera", "do vera",
			"dvojra", "dvojera", "dojera", "dvojira", "douera", "dovaera", "dvera", "doera", "dovara",
		},
	},
	{
		official: CarrierUnion,
		variations: []string{
			"union", "unia", "union zdravotna poistovna", "unia zdravotna poistovna",
			"junion", "julion", "yulion", "yunion", "julon", "uwion",
		},
	},
}

// Carriers lists the official carrier names.
func Carriers() []string {
	out := make([]string, 0, len(carriers))
	for _, c := range carriers {
		out = append(out, c.official)
	}
	return out
}

// NormalizeInsurance maps spoken or typed carrier names onto the official
// spelling. An exact variation match wins; otherwise a variation of at least
// four letters contained in the input is accepted. Unknown input is returned
// trimmed with ok=false.
func NormalizeInsurance(value string) (string, bool) {
	folded := textfold.String(strings.NewReplacer(".", "", ",", "", "!", "", "?", "").Replace(value))
	if folded == "" {
		return "", false
	}
	for _, c := range carriers {
		if folded == textfold.String(c.official) {
			return c.official, true
		}
		for _, v := range c.variations {
			if folded == v {
				return c.official, true
			}
		}
	}
	for _, c := range carriers {
		for _, v := range c.variations {
			if len(v) >= 4 && strings.Contains(folded, v) {
				return c.official, true
			}
		}
	}
	return strings.TrimSpace(value), false
}
