// Package pricing computes delivery distance, fee, and ETA from a pair of
// geographic points and a restaurant's preparation time. All functions are
// pure and safe for concurrent use.
package pricing

import (
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

var (
	// ErrInvalidLatitude is returned for latitudes outside [-90, 90].
	ErrInvalidLatitude = errors.New("latitude out of range [-90, 90]")
	// ErrInvalidLongitude is returned for longitudes outside [-180, 180].
	ErrInvalidLongitude = errors.New("longitude out of range [-180, 180]")
)

// GeoPoint is a validated geographic coordinate pair.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// NewGeoPoint validates the coordinate ranges and returns a GeoPoint.
func NewGeoPoint(lat, lon float64) (GeoPoint, error) {
	if lat < -90 || lat > 90 || math.IsNaN(lat) {
		return GeoPoint{}, ErrInvalidLatitude
	}
	if lon < -180 || lon > 180 || math.IsNaN(lon) {
		return GeoPoint{}, ErrInvalidLongitude
	}
	return GeoPoint{Lat: lat, Lon: lon}, nil
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(origin, dest GeoPoint) float64 {
	latDist := toRadians(dest.Lat - origin.Lat)
	lonDist := toRadians(dest.Lon - origin.Lon)

	a := math.Sin(latDist/2)*math.Sin(latDist/2) +
		math.Cos(toRadians(origin.Lat))*math.Cos(toRadians(dest.Lat))*
			math.Sin(lonDist/2)*math.Sin(lonDist/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Params holds the tariff and speed parameters for fee and ETA calculation.
// Zero MaxFee means no upper cap.
type Params struct {
	BaseFee          decimal.Decimal
	PerKmRate        decimal.Decimal
	MinFee           decimal.Decimal
	MaxFee           decimal.Decimal
	AvgSpeedKmh      float64
	MinTravelMinutes int
}

// Quote is the computed delivery pricing for a single order.
type Quote struct {
	DistanceKm decimal.Decimal
	Fee        decimal.Decimal
	ETAMinutes int
}

// Calculator computes delivery fees and ETAs from a fixed set of Params.
// The zero value is not usable; construct with NewCalculator.
type Calculator struct {
	params Params
}

// NewCalculator returns a Calculator using the given tariff parameters.
func NewCalculator(params Params) *Calculator {
	return &Calculator{params: params}
}

// DeliveryFee computes base + perKm*distance, clamped to [MinFee, MaxFee]
// and rounded to 2 decimal places.
func (c *Calculator) DeliveryFee(distanceKm float64) decimal.Decimal {
	fee := c.params.BaseFee.Add(c.params.PerKmRate.Mul(decimal.NewFromFloat(distanceKm)))

	if fee.LessThan(c.params.MinFee) {
		fee = c.params.MinFee
	}
	if c.params.MaxFee.IsPositive() && fee.GreaterThan(c.params.MaxFee) {
		fee = c.params.MaxFee
	}

	return fee.Round(2)
}

// ETAMinutes computes preparation time plus travel time at the configured
// average speed. Travel time is rounded up to whole minutes and never falls
// below MinTravelMinutes.
func (c *Calculator) ETAMinutes(distanceKm float64, prepTimeMinutes int) int {
	travel := int(math.Ceil(distanceKm / c.params.AvgSpeedKmh * 60))
	if travel < c.params.MinTravelMinutes {
		travel = c.params.MinTravelMinutes
	}
	return prepTimeMinutes + travel
}

// Quote computes distance, fee, and ETA between origin and destination in one
// call. Distance is rounded to 2 decimal places for presentation.
func (c *Calculator) Quote(origin, dest GeoPoint, prepTimeMinutes int) Quote {
	dist := DistanceKm(origin, dest)

	return Quote{
		DistanceKm: decimal.NewFromFloat(dist).Round(2),
		Fee:        c.DeliveryFee(dist),
		ETAMinutes: c.ETAMinutes(dist, prepTimeMinutes),
	}
}
