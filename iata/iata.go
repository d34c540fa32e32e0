// Package iata provides a static reference table of airports keyed by their
// 3-letter IATA code. The table covers the short-haul European network the
// engine scans; coordinates come from the OurAirports public dataset.
package iata

import "sort"

// Airport describes one entry of the reference table.
type Airport struct {
	Code    string
	City    string
	Country string
	Lat     float64
	Lon     float64
}

// Lookup returns the airport for a 3-letter IATA code.
func Lookup(code string) (Airport, bool) {
	a, ok := table[code]
	return a, ok
}

// Known reports whether the code exists in the table.
func Known(code string) bool {
	_, ok := table[code]
	return ok
}

// All returns every airport in the table, sorted by code.
func All() []Airport {
	out := make([]Airport, 0, len(table))
	for _, a := range table {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

var table = map[string]Airport{
	// Italy (23)
	"PSA": {"PSA", "Pisa", "Italy", 43.683899, 10.392700},
	"FLR": {"FLR", "Firenze", "Italy", 43.810001, 11.205100},
	"BLQ": {"BLQ", "Bologna", "Italy", 44.535400, 11.288700},
	"BGY": {"BGY", "Bergamo", "Italy", 45.673901, 9.704170},
	"MXP": {"MXP", "Milan", "Italy", 45.630600, 8.728110},
	"LIN": {"LIN", "Milan", "Italy", 45.445099, 9.276740},
	"VCE": {"VCE", "Venezia", "Italy", 45.505299, 12.351900},
	"TSF": {"TSF", "Treviso", "Italy", 45.648399, 12.194400},
	"TRN": {"TRN", "Torino", "Italy", 45.200802, 7.649630},
	"GOA": {"GOA", "Genova", "Italy", 44.413300, 8.837500},
	"CIA": {"CIA", "Roma", "Italy", 41.799400, 12.594900},
	"FCO": {"FCO", "Roma", "Italy", 41.804501, 12.250800},
	"NAP": {"NAP", "Napoli", "Italy", 40.886002, 14.290800},
	"BRI": {"BRI", "Bari", "Italy", 41.138901, 16.760599},
	"PMO": {"PMO", "Palermo", "Italy", 38.175999, 13.091000},
	"CTA": {"CTA", "Catania", "Italy", 37.466801, 15.066400},
	"CAG": {"CAG", "Cagliari", "Italy", 39.251499, 9.054280},
	"AHO": {"AHO", "Alghero", "Italy", 40.632099, 8.290770},
	"VRN": {"VRN", "Verona", "Italy", 45.395699, 10.888500},
	"PEG": {"PEG", "Perugia", "Italy", 43.095901, 12.513200},
	"PSR": {"PSR", "Pescara", "Italy", 42.431702, 14.181100},
	"AOI": {"AOI", "Ancona", "Italy", 43.616299, 13.362300},
	"RMI": {"RMI", "Rimini", "Italy", 44.020302, 12.611700},

	// Spain (15)
	"BCN": {"BCN", "Barcelona", "Spain", 41.297100, 2.078460},
	"GRO": {"GRO", "Girona", "Spain", 41.901001, 2.760550},
	"REU": {"REU", "Reus", "Spain", 41.147400, 1.167170},
	"MAD": {"MAD", "Madrid", "Spain", 40.493600, -3.566760},
	"ALC": {"ALC", "Alicante", "Spain", 38.282200, -0.558156},
	"VLC": {"VLC", "Valencia", "Spain", 39.489300, -0.481625},
	"AGP": {"AGP", "Malaga", "Spain", 36.674900, -4.499110},
	"SVQ": {"SVQ", "Sevilla", "Spain", 37.417999, -5.893110},
	"BIO": {"BIO", "Bilbao", "Spain", 43.301102, -2.910610},
	"SDR": {"SDR", "Santander", "Spain", 43.427101, -3.820010},
	"ZAZ": {"ZAZ", "Zaragoza", "Spain", 41.666199, -1.041550},
	"VLL": {"VLL", "Valladolid", "Spain", 41.706100, -4.851940},
	"PMI": {"PMI", "Palma de Mallorca", "Spain", 39.551701, 2.738810},
	"IBZ": {"IBZ", "Ibiza", "Spain", 38.872898, 1.373120},
	"MAH": {"MAH", "Menorca", "Spain", 39.862598, 4.218650},

	// Portugal (3)
	"LIS": {"LIS", "Lisbon", "Portugal", 38.781300, -9.135920},
	"OPO": {"OPO", "Porto", "Portugal", 41.248100, -8.681390},
	"FAO": {"FAO", "Faro", "Portugal", 37.014400, -7.965910},

	// United Kingdom (14)
	"LHR": {"LHR", "London", "United Kingdom", 51.470600, -0.461941},
	"LGW": {"LGW", "London", "United Kingdom", 51.148102, -0.190278},
	"STN": {"STN", "London", "United Kingdom", 51.884998, 0.235000},
	"LTN": {"LTN", "London", "United Kingdom", 51.874699, -0.368333},
	"LCY": {"LCY", "London", "United Kingdom", 51.505299, 0.055278},
	"SEN": {"SEN", "Southend", "United Kingdom", 51.571400, 0.695556},
	"MAN": {"MAN", "Manchester", "United Kingdom", 53.353699, -2.274950},
	"LPL": {"LPL", "Liverpool", "United Kingdom", 53.333599, -2.849720},
	"BRS": {"BRS", "Bristol", "United Kingdom", 51.382702, -2.719090},
	"BHX": {"BHX", "Birmingham", "United Kingdom", 52.453899, -1.748030},
	"EDI": {"EDI", "Edinburgh", "United Kingdom", 55.950001, -3.372500},
	"GLA": {"GLA", "Glasgow", "United Kingdom", 55.871899, -4.433060},
	"NCL": {"NCL", "Newcastle", "United Kingdom", 55.037498, -1.691670},
	"EMA": {"EMA", "Nottingham", "United Kingdom", 52.831100, -1.328060},

	// Ireland (3)
	"DUB": {"DUB", "Dublin", "Ireland", 53.421299, -6.270070},
	"ORK": {"ORK", "Cork", "Ireland", 51.841301, -8.491110},
	"SNN": {"SNN", "Shannon", "Ireland", 52.702000, -8.924820},

	// France (9)
	"CDG": {"CDG", "Paris", "France", 49.012798, 2.550000},
	"ORY": {"ORY", "Paris", "France", 48.725300, 2.359440},
	"BVA": {"BVA", "Beauvais", "France", 49.454399, 2.112780},
	"NTE": {"NTE", "Nantes", "France", 47.153198, -1.610730},
	"MRS": {"MRS", "Marseille", "France", 43.439272, 5.221424},
	"LYS": {"LYS", "Lyon", "France", 45.726398, 5.090830},
	"TLS": {"TLS", "Toulouse", "France", 43.629101, 1.363820},
	"BOD": {"BOD", "Bordeaux", "France", 44.828300, -0.715556},
	"LIL": {"LIL", "Lille", "France", 50.561901, 3.089440},

	// Benelux (6)
	"AMS": {"AMS", "Amsterdam", "Netherlands", 52.308601, 4.763890},
	"EIN": {"EIN", "Eindhoven", "Netherlands", 51.450100, 5.374530},
	"RTM": {"RTM", "Rotterdam", "Netherlands", 51.956902, 4.437220},
	"BRU": {"BRU", "Brussels", "Belgium", 50.901402, 4.484440},
	"CRL": {"CRL", "Charleroi", "Belgium", 50.459202, 4.453820},
	"ANR": {"ANR", "Antwerp", "Belgium", 51.189400, 4.460280},

	// Germany (11)
	"FRA": {"FRA", "Frankfurt", "Germany", 50.026402, 8.543130},
	"HHN": {"HHN", "Hahn", "Germany", 49.948700, 7.263890},
	"FMM": {"FMM", "Memmingen", "Germany", 47.988800, 10.239500},
	"MUC": {"MUC", "Munich", "Germany", 48.353802, 11.786100},
	"NRN": {"NRN", "Weeze", "Germany", 51.602402, 6.142170},
	"CGN": {"CGN", "Cologne", "Germany", 50.865898, 7.142740},
	"HAM": {"HAM", "Hamburg", "Germany", 53.630402, 9.988230},
	"BER": {"BER", "Berlin", "Germany", 52.366667, 13.503333},
	"STR": {"STR", "Stuttgart", "Germany", 48.689899, 9.221960},
	"NUE": {"NUE", "Nuremberg", "Germany", 49.498699, 11.066900},
	"DUS": {"DUS", "Dusseldorf", "Germany", 51.289501, 6.766780},

	// Central and eastern Europe (13)
	"PRG": {"PRG", "Prague", "Czechia", 50.100800, 14.260000},
	"BUD": {"BUD", "Budapest", "Hungary", 47.436901, 19.255600},
	"OTP": {"OTP", "Bucharest", "Romania", 44.572201, 26.102200},
	"WAW": {"WAW", "Warsaw", "Poland", 52.165699, 20.967100},
	"WMI": {"WMI", "Warsaw", "Poland", 52.451099, 20.651800},
	"KRK": {"KRK", "Krakow", "Poland", 50.077702, 19.784800},
	"GDN": {"GDN", "Gdansk", "Poland", 54.377602, 18.466200},
	"WRO": {"WRO", "Wroclaw", "Poland", 51.102699, 16.885799},
	"POZ": {"POZ", "Poznan", "Poland", 52.421001, 16.826300},
	"KTW": {"KTW", "Katowice", "Poland", 50.474300, 19.080000},
	"VIE": {"VIE", "Vienna", "Austria", 48.110298, 16.569700},
	"BTS": {"BTS", "Bratislava", "Slovakia", 48.170200, 17.212700},
	"LJU": {"LJU", "Ljubljana", "Slovenia", 46.223701, 14.457600},

	// Switzerland (3)
	"ZRH": {"ZRH", "Zurich", "Switzerland", 47.464699, 8.549170},
	"GVA": {"GVA", "Geneva", "Switzerland", 46.238098, 6.108950},
	"BSL": {"BSL", "Basel", "Switzerland", 47.589600, 7.529910},

	// Greece (12)
	"ATH": {"ATH", "Athens", "Greece", 37.936401, 23.944500},
	"SKG": {"SKG", "Thessaloniki", "Greece", 40.519699, 22.970900},
	"HER": {"HER", "Heraklion", "Greece", 35.339699, 25.180300},
	"CHQ": {"CHQ", "Chania", "Greece", 35.531700, 24.149700},
	"RHO": {"RHO", "Rhodes", "Greece", 36.405399, 28.086201},
	"CFU": {"CFU", "Corfu", "Greece", 39.601898, 19.911699},
	"ZTH": {"ZTH", "Zakynthos", "Greece", 37.750900, 20.884300},
	"KGS": {"KGS", "Kos", "Greece", 36.793301, 27.091700},
	"JMK": {"JMK", "Mykonos", "Greece", 37.435101, 25.348101},
	"JTR": {"JTR", "Santorini", "Greece", 36.399200, 25.479300},
	"EFL": {"EFL", "Kefalonia", "Greece", 38.120098, 20.500500},
	"PVK": {"PVK", "Preveza", "Greece", 38.925499, 20.765301},

	// Balkans (11)
	"DBV": {"DBV", "Dubrovnik", "Croatia", 42.561401, 18.268200},
	"SPU": {"SPU", "Split", "Croatia", 43.538898, 16.298000},
	"ZAD": {"ZAD", "Zadar", "Croatia", 44.108299, 15.346700},
	"ZAG": {"ZAG", "Zagreb", "Croatia", 45.742901, 16.068800},
	"TIA": {"TIA", "Tirana", "Albania", 41.414700, 19.720600},
	"SOF": {"SOF", "Sofia", "Bulgaria", 42.696693, 23.411436},
	"BOJ": {"BOJ", "Burgas", "Bulgaria", 42.569599, 27.515200},
	"VAR": {"VAR", "Varna", "Bulgaria", 43.232101, 27.825100},
	"BEG": {"BEG", "Belgrade", "Serbia", 44.818401, 20.309099},
	"TGD": {"TGD", "Podgorica", "Montenegro", 42.359402, 19.251900},
	"TIV": {"TIV", "Tivat", "Montenegro", 42.404701, 18.723301},

	// Malta (1)
	"MLA": {"MLA", "Luqa", "Malta", 35.857498, 14.477500},

	// Nordics (11)
	"CPH": {"CPH", "Copenhagen", "Denmark", 55.617901, 12.656000},
	"BLL": {"BLL", "Billund", "Denmark", 55.740299, 9.151780},
	"AAL": {"AAL", "Aalborg", "Denmark", 57.092759, 9.849243},
	"ARN": {"ARN", "Stockholm", "Sweden", 59.651901, 17.918600},
	"NYO": {"NYO", "Nykoping", "Sweden", 58.788601, 16.912201},
	"GOT": {"GOT", "Gothenburg", "Sweden", 57.662800, 12.279800},
	"OSL": {"OSL", "Oslo", "Norway", 60.193901, 11.100400},
	"TRF": {"TRF", "Torp", "Norway", 59.186699, 10.258600},
	"SVG": {"SVG", "Stavanger", "Norway", 58.876701, 5.637780},
	"BGO": {"BGO", "Bergen", "Norway", 60.293400, 5.218140},
	"HEL": {"HEL", "Helsinki", "Finland", 60.317200, 24.963301},

	// Baltics (4)
	"TLL": {"TLL", "Tallinn", "Estonia", 59.413300, 24.832800},
	"RIX": {"RIX", "Riga", "Latvia", 56.923599, 23.971100},
	"VNO": {"VNO", "Vilnius", "Lithuania", 54.634102, 25.285801},
	"KUN": {"KUN", "Kaunas", "Lithuania", 54.963902, 24.084801},
}
