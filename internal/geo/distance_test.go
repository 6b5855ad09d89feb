package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flysch/matchd/internal/model"
)

var (
	sanFrancisco = model.GeoPoint{Lat: 37.7749, Lng: -122.4194}
	losAngeles   = model.GeoPoint{Lat: 34.0522, Lng: -118.2437}
	oakland      = model.GeoPoint{Lat: 37.8044, Lng: -122.2712}
	sacramento   = model.GeoPoint{Lat: 38.5816, Lng: -121.4944}
)

func TestHaversineKnownDistances(t *testing.T) {
	assert.InDelta(t, 559.12, HaversineKm(sanFrancisco, losAngeles), 0.5)
	assert.InDelta(t, 13.43, HaversineKm(sanFrancisco, oakland), 0.1)
	assert.InDelta(t, 120.76, HaversineKm(sanFrancisco, sacramento), 0.5)
}

func TestHaversineZeroForSamePoint(t *testing.T) {
	assert.Zero(t, HaversineKm(sanFrancisco, sanFrancisco))
}

func TestHaversineSymmetric(t *testing.T) {
	assert.InDelta(t, HaversineKm(sanFrancisco, losAngeles), HaversineKm(losAngeles, sanFrancisco), 1e-9)
}

func TestHaversineTriangleInequality(t *testing.T) {
	direct := HaversineKm(sanFrancisco, losAngeles)
	viaOakland := HaversineKm(sanFrancisco, oakland) + HaversineKm(oakland, losAngeles)
	assert.LessOrEqual(t, direct, viaOakland)
}
