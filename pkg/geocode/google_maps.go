// Package geocode resolves coordinates into human-readable addresses for
// alert text. Lookups are best-effort; a failure leaves the alert without an
// address line.
package geocode

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

type GoogleGeocoder struct {
	client *maps.Client
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	req := &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	}

	results, err := g.client.ReverseGeocode(ctx, req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode failed: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no address found for %.4f,%.4f", lat, lng)
	}

	return results[0].FormattedAddress, nil
}
