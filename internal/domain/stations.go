package domain

import "sort"

// StationProfile describes the NWS station backing a city's predictions.
type StationProfile struct {
	StationID   string  `json:"station"`
	DisplayName string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// StationDirectory is a read-only lookup table from city key to station
// profile, supplied at construction.
type StationDirectory map[string]StationProfile

// Lookup returns the profile for a city key.
func (d StationDirectory) Lookup(city string) (StationProfile, bool) {
	p, ok := d[city]
	return p, ok
}

// Cities returns the configured city keys in sorted order.
func (d StationDirectory) Cities() []string {
	cities := make([]string, 0, len(d))
	for city := range d {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

// DefaultStations is the set of cities the oracle tracks, each backed by a
// well-instrumented NWS station.
func DefaultStations() StationDirectory {
	return StationDirectory{
		"NYC":          {StationID: "KNYC", DisplayName: "New York City (Central Park)", Lat: 40.7831, Lon: -73.9712},
		"Chicago":      {StationID: "KMDW", DisplayName: "Chicago (Midway Airport)", Lat: 41.7868, Lon: -87.7522},
		"Miami":        {StationID: "KMIA", DisplayName: "Miami (MIA Airport)", Lat: 25.7959, Lon: -80.287},
		"Austin":       {StationID: "KAUS", DisplayName: "Austin (Bergstrom Airport)", Lat: 30.1945, Lon: -97.6699},
		"Denver":       {StationID: "KDEN", DisplayName: "Denver (DEN Airport)", Lat: 39.8561, Lon: -104.6737},
		"Houston":      {StationID: "KHOU", DisplayName: "Houston (Hobby Airport)", Lat: 29.6454, Lon: -95.2789},
		"Philadelphia": {StationID: "KPHL", DisplayName: "Philadelphia (PHL Airport)", Lat: 39.8721, Lon: -75.2411},
	}
}
