package network

import (
	"math"
)

const earthRadiusM = 6371000.0

// Distance returns the distance in metres between two positions.
// UTM coordinates are preferred when both positions carry them
// (Euclidean, accurate for the short spans between poles); otherwise
// the haversine great-circle distance is used on lat/lng. Returns
// false when the positions share no usable coordinate system.
func Distance(a, b Position) (float64, bool) {
	if a.HasUTM && b.HasUTM {
		dx := a.UTMX - b.UTMX
		dy := a.UTMY - b.UTMY
		return math.Sqrt(dx*dx + dy*dy), true
	}
	if a.HasLatLng && b.HasLatLng {
		return haversine(a.Lat, a.Lng, b.Lat, b.Lng), true
	}
	return 0, false
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}
