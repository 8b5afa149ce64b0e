package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

var (
	ErrNilGeometry         = errors.New("geometry is null")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrEmptyGeometry       = errors.New("geometry has no positions")
)

// ValidateGeometry checks that g is one of the supported geometry types and that
// every polygon ring is closed and has at least four positions.
func ValidateGeometry(g orb.Geometry) error {
	switch g := g.(type) {
	case nil:
		return ErrNilGeometry
	case orb.Point:
		return nil
	case orb.MultiPoint:
		if len(g) == 0 {
			return fmt.Errorf("%w: MultiPoint", ErrEmptyGeometry)
		}
		return nil
	case orb.LineString:
		return validateLine(g)
	case orb.MultiLineString:
		if len(g) == 0 {
			return fmt.Errorf("%w: MultiLineString", ErrEmptyGeometry)
		}
		for i, ls := range g {
			if err := validateLine(ls); err != nil {
				return fmt.Errorf("line %d: %w", i, err)
			}
		}
		return nil
	case orb.Polygon:
		return validatePolygon(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return fmt.Errorf("%w: MultiPolygon", ErrEmptyGeometry)
		}
		for i, p := range g {
			if err := validatePolygon(p); err != nil {
				return fmt.Errorf("polygon %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.GeoJSONType())
	}
}

func validateLine(ls orb.LineString) error {
	if len(ls) < 2 {
		return fmt.Errorf("line has %d positions, need at least 2", len(ls))
	}
	return nil
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.New("polygon has no rings")
	}
	for i, r := range p {
		if err := ValidateRing(r); err != nil {
			return fmt.Errorf("ring %d: %w", i, err)
		}
	}
	return nil
}

// ValidateRing checks ring closure and minimum length.
func ValidateRing(r orb.Ring) error {
	if len(r) < 4 {
		return fmt.Errorf("ring has %d positions, need at least 4", len(r))
	}
	if !r.Closed() {
		return fmt.Errorf("ring is not closed: first %v, last %v", r[0], r[len(r)-1])
	}
	return nil
}
