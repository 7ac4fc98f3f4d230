package geo

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	// NameKey is the feature property districts are matched against.
	NameKey = "name"

	typeFeatureCollection = "FeatureCollection"
)

// FeatureCollection is a boundary document whose features are keyed by
// their name property.
type FeatureCollection struct {
	*geojson.FeatureCollection
}

func Parse(r io.Reader) (*FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != typeFeatureCollection {
		return nil, fmt.Errorf("geojson type %q, want FeatureCollection", fc.Type)
	}
	return &FeatureCollection{FeatureCollection: fc}, nil
}

// Name returns the feature's name property, or "" when absent.
func Name(f *geojson.Feature) string {
	return f.Properties.MustString(NameKey, "")
}

// Feature returns the feature whose name property equals name.
func (fc *FeatureCollection) Feature(name string) (*geojson.Feature, bool) {
	for _, f := range fc.Features {
		if Name(f) == name {
			return f, true
		}
	}
	return nil, false
}

func (fc *FeatureCollection) Names() []string {
	names := make([]string, 0, len(fc.Features))
	for _, f := range fc.Features {
		if n := Name(f); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// OuterRings returns the exterior ring of every polygon in g, descending
// into geometry collections. Holes are dropped; district boundaries do not
// use them.
func OuterRings(g orb.Geometry) ([]orb.Ring, error) {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return nil, nil
		}
		return []orb.Ring{g[0]}, nil
	case orb.MultiPolygon:
		rings := make([]orb.Ring, 0, len(g))
		for _, poly := range g {
			if len(poly) > 0 {
				rings = append(rings, poly[0])
			}
		}
		return rings, nil
	case orb.Collection:
		var rings []orb.Ring
		for _, member := range g {
			inner, err := OuterRings(member)
			if err != nil {
				return nil, err
			}
			rings = append(rings, inner...)
		}
		return rings, nil
	case nil:
		return nil, fmt.Errorf("feature has no geometry")
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.GeoJSONType())
	}
}
