package services

import (
	"context"
	"errors"
	"time"

	"googlemaps.github.io/maps"

	"volunteerhub/internal/models"
)

var ErrNoAPIKey = errors.New("GOOGLE_MAPS_API_KEY is not set")

// LocationResolver turns a place id into a normalised location
type LocationResolver interface {
	Resolve(ctx context.Context, placeID string) (*models.Location, error)
}

// MapsResolver resolves place ids with the Google Maps Place Details API
type MapsResolver struct {
	client  *maps.Client
	timeout time.Duration
}

func NewMapsResolver(apiKey string) (*MapsResolver, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &MapsResolver{client: client, timeout: 5 * time.Second}, nil
}

// Resolve validates and standardizes location data using the place id
func (r *MapsResolver) Resolve(ctx context.Context, placeID string) (*models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	response, err := r.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskGeometry,
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskPlaceID,
		},
	})
	if err != nil {
		return nil, err
	}

	return &models.Location{
		PlaceID:          response.PlaceID,
		Name:             response.Name,
		FormattedAddress: response.FormattedAddress,
		Latitude:         response.Geometry.Location.Lat,
		Longitude:        response.Geometry.Location.Lng,
	}, nil
}
