// Package geo normalizes the location encodings found in school records and
// provides great-circle distance math.
package geo

import (
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/flysch/matchd/internal/model"
)

// Encoding identifies which structural shape a raw location value has.
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingObject
	EncodingGeoJSON
	EncodingEWKB
	EncodingWKT
	EncodingArray
)

func (e Encoding) String() string {
	switch e {
	case EncodingObject:
		return "object"
	case EncodingGeoJSON:
		return "geojson"
	case EncodingEWKB:
		return "ewkb"
	case EncodingWKT:
		return "wkt"
	case EncodingArray:
		return "array"
	default:
		return "unknown"
	}
}

var (
	ewkbHexRe  = regexp.MustCompile(`^01[0-9A-Fa-f]{40,}$`)
	sridRe     = regexp.MustCompile(`(?i)^SRID=\d+;`)
	wktPointRe = regexp.MustCompile(`(?i)POINT\s*\(\s*(-?[\d.]+)\s+(-?[\d.]+)\s*\)`)
	numPairRe  = regexp.MustCompile(`(-?[\d.]+)[,\s]+(-?[\d.]+)`)
)

// Classify determines the structural encoding of a raw location value.
// Classification is purely structural: a value that looks like EWKB but fails
// to decode still classifies as EWKB.
func Classify(raw any) Encoding {
	switch v := raw.(type) {
	case map[string]any:
		if _, hasLat := v["lat"]; hasLat {
			if _, hasLng := v["lng"]; hasLng {
				return EncodingObject
			}
		}
		if _, ok := v["coordinates"]; ok {
			return EncodingGeoJSON
		}
		return EncodingUnknown
	case string:
		if ewkbHexRe.MatchString(v) && len(v) >= 50 {
			return EncodingEWKB
		}
		return EncodingWKT
	case []any:
		return EncodingArray
	case model.GeoPoint:
		return EncodingObject
	case *model.GeoPoint:
		if v != nil {
			return EncodingObject
		}
		return EncodingUnknown
	default:
		return EncodingUnknown
	}
}

// Normalize converts a raw location value into a validated GeoPoint. The
// first structurally matching encoding is the only one attempted; a value
// that matches a shape but fails to parse or validate yields nil rather than
// falling through to another decoder. Unrecognized or invalid input yields
// nil, never an error.
func Normalize(raw any) *model.GeoPoint {
	if raw == nil {
		return nil
	}

	switch Classify(raw) {
	case EncodingObject:
		return normalizeObject(raw)
	case EncodingGeoJSON:
		return normalizeGeoJSON(raw.(map[string]any))
	case EncodingEWKB:
		return normalizeEWKB(raw.(string))
	case EncodingWKT:
		return normalizeWKT(raw.(string))
	case EncodingArray:
		return normalizeArray(raw.([]any))
	default:
		return nil
	}
}

func normalizeObject(raw any) *model.GeoPoint {
	switch v := raw.(type) {
	case model.GeoPoint:
		return validated(v.Lat, v.Lng)
	case *model.GeoPoint:
		return validated(v.Lat, v.Lng)
	case map[string]any:
		lat, okLat := toFloat(v["lat"])
		lng, okLng := toFloat(v["lng"])
		if !okLat || !okLng {
			return nil
		}
		return validated(lat, lng)
	}
	return nil
}

// normalizeGeoJSON handles GeoJSON Point geometry. Coordinates are
// [longitude, latitude] per RFC 7946.
func normalizeGeoJSON(v map[string]any) *model.GeoPoint {
	coords, ok := v["coordinates"].([]any)
	if !ok || len(coords) < 2 {
		return nil
	}
	lng, okLng := toFloat(coords[0])
	lat, okLat := toFloat(coords[1])
	if !okLng || !okLat {
		return nil
	}
	return validated(lat, lng)
}

func normalizeEWKB(s string) *model.GeoPoint {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil
	}
	coords := pt.Coords()
	if len(coords) < 2 {
		return nil
	}
	return validated(coords[1], coords[0])
}

func normalizeWKT(s string) *model.GeoPoint {
	s = sridRe.ReplaceAllString(strings.TrimSpace(s), "")

	if m := wktPointRe.FindStringSubmatch(s); m != nil {
		lng, errX := strconv.ParseFloat(m[1], 64)
		lat, errY := strconv.ParseFloat(m[2], 64)
		if errX != nil || errY != nil {
			return nil
		}
		return validated(lat, lng)
	}

	// Last resort: any two numbers separated by a comma or whitespace,
	// read as longitude then latitude.
	if m := numPairRe.FindStringSubmatch(s); m != nil {
		lng, errX := strconv.ParseFloat(m[1], 64)
		lat, errY := strconv.ParseFloat(m[2], 64)
		if errX != nil || errY != nil {
			return nil
		}
		return validated(lat, lng)
	}

	return nil
}

// normalizeArray reads a bare [lng, lat] pair.
func normalizeArray(v []any) *model.GeoPoint {
	if len(v) < 2 {
		return nil
	}
	lng, okLng := toFloat(v[0])
	lat, okLat := toFloat(v[1])
	if !okLng || !okLat {
		return nil
	}
	return validated(lat, lng)
}

func validated(lat, lng float64) *model.GeoPoint {
	p := model.GeoPoint{Lat: lat, Lng: lng}
	if !p.Valid() {
		return nil
	}
	return &p
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
