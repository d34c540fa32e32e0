// Command generate rebuilds the airport reference entries from the public
// airport database at https://github.com/mwgg/Airports. It prints table
// entries for the covered countries to stdout; paste the output into
// iata.go and regroup by region by hand.
//
// Command: go run ./iata/generate/generate.go
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
)

// Pinned so regeneration is reproducible.
const airportsCommit = "f259c38566a5acbcb04b64eb5ad01d14bf7fd07c"

// countries maps the ISO codes of the short-haul European network to the
// names used in the table.
var countries = map[string]string{
	"IT": "Italy",
	"ES": "Spain",
	"PT": "Portugal",
	"GB": "United Kingdom",
	"IE": "Ireland",
	"FR": "France",
	"BE": "Belgium",
	"NL": "Netherlands",
	"LU": "Luxembourg",
	"DE": "Germany",
	"AT": "Austria",
	"CZ": "Czechia",
	"SK": "Slovakia",
	"PL": "Poland",
	"HU": "Hungary",
	"RO": "Romania",
	"BG": "Bulgaria",
	"CH": "Switzerland",
	"GR": "Greece",
	"HR": "Croatia",
	"SI": "Slovenia",
	"RS": "Serbia",
	"BA": "Bosnia and Herzegovina",
	"ME": "Montenegro",
	"MK": "North Macedonia",
	"AL": "Albania",
	"MT": "Malta",
	"DK": "Denmark",
	"NO": "Norway",
	"SE": "Sweden",
	"FI": "Finland",
	"IS": "Iceland",
	"EE": "Estonia",
	"LV": "Latvia",
	"LT": "Lithuania",
}

type airport struct {
	Iata    string  `json:"iata"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func getAirports(commitHash string) (map[string]airport, error) {
	resp, err := http.Get(fmt.Sprintf("https://raw.githubusercontent.com/mwgg/Airports/%s/airports.json", commitHash))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	airports := map[string]airport{}
	err = json.NewDecoder(resp.Body).Decode(&airports)
	return airports, err
}

func main() {
	airports, err := getAirports(airportsCommit)
	if err != nil {
		log.Fatal(err)
	}

	// The airport database occasionally repeats an IATA code under two ICAO
	// keys; iterate in key order so duplicates resolve the same way every run.
	keys := make([]string, 0, len(airports))
	for k := range airports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := map[string]struct{}{}
	lines := make([]string, 0)
	for _, k := range keys {
		a := airports[k]
		country, ok := countries[a.Country]
		if !ok || a.Iata == "" || a.Iata == "0" || a.City == "" {
			continue
		}
		if _, dup := seen[a.Iata]; dup {
			continue
		}
		seen[a.Iata] = struct{}{}
		lines = append(lines, fmt.Sprintf("\t%q: {%q, %q, %q, %f, %f},",
			a.Iata, a.Iata, a.City, country, a.Lat, a.Lon))
	}

	sort.Strings(lines)
	for _, line := range lines {
		fmt.Println(line)
	}
}
