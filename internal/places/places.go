// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package places

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/tomtom215/dinemap/internal/geo"
	"github.com/tomtom215/dinemap/internal/models"
)

// Endpoint names, also used as metric labels.
const (
	endpointFindPlace = "findplacefromtext"
	endpointDetails   = "details"
	endpointNearby    = "nearbysearch"
)

const businessStatusClosed = "CLOSED_PERMANENTLY"

type photoRef struct {
	PhotoReference string `json:"photo_reference"`
}

type candidate struct {
	PlaceID          string     `json:"place_id"`
	Name             string     `json:"name"`
	Rating           float64    `json:"rating"`
	UserRatingsTotal int        `json:"user_ratings_total"`
	BusinessStatus   string     `json:"business_status"`
	Photos           []photoRef `json:"photos"`
}

type findPlaceResponse struct {
	apiStatus
	Candidates []candidate `json:"candidates"`
}

type detailsResponse struct {
	apiStatus
	Result struct {
		candidate
		Reviews []models.Review `json:"reviews"`
	} `json:"result"`
}

type nearbyResponse struct {
	apiStatus
	Results []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		OpeningHours *struct {
			OpenNow *bool `json:"open_now"`
		} `json:"opening_hours"`
	} `json:"results"`
}

// Category selects the kind of place a nearby search looks for.
type Category struct {
	PlaceType string // e.g. "convenience_store"
	Keyword   string // e.g. "FamilyMart"
}

// findPlace resolves name to its first candidate with the requested fields.
func (c *Client) findPlace(ctx context.Context, name, fields string) (candidate, error) {
	params := url.Values{}
	params.Set("input", c.query(name))
	params.Set("inputtype", "textquery")
	params.Set("fields", fields)
	if c.language != "" {
		params.Set("language", c.language)
	}

	var resp findPlaceResponse
	if err := c.get(ctx, endpointFindPlace, params, &resp); err != nil {
		logUpstream(ctx, endpointFindPlace, name, err)
		return candidate{}, err
	}
	if len(resp.Candidates) == 0 {
		return candidate{}, ErrNotFound
	}

	first := resp.Candidates[0]
	if first.PlaceID != "" {
		c.placeIDs.Set(name, first.PlaceID)
	}
	return first, nil
}

// placeID returns the memoized place ID for name, resolving it if needed.
func (c *Client) placeID(ctx context.Context, name string) (string, error) {
	if id, ok := c.placeIDs.Get(name); ok {
		return id, nil
	}
	cand, err := c.findPlace(ctx, name, "place_id")
	if err != nil {
		return "", err
	}
	if cand.PlaceID == "" {
		return "", ErrNotFound
	}
	return cand.PlaceID, nil
}

func (c *Client) details(ctx context.Context, placeID, fields string) (*detailsResponse, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", fields)
	if c.language != "" {
		params.Set("language", c.language)
	}

	var resp detailsResponse
	if err := c.get(ctx, endpointDetails, params, &resp); err != nil {
		logUpstream(ctx, endpointDetails, placeID, err)
		return nil, err
	}
	return &resp, nil
}

// FetchRating returns the aggregate rating of the named restaurant.
func (c *Client) FetchRating(ctx context.Context, name string) (models.Rating, error) {
	cand, err := c.findPlace(ctx, name, "place_id,rating,user_ratings_total")
	if err != nil {
		return models.Rating{}, err
	}
	return models.Rating{Rating: cand.Rating, UserRatingsTotal: cand.UserRatingsTotal}, nil
}

// FetchPhoto returns the first photo of the named restaurant. The text
// search usually carries photos; otherwise place details are consulted.
// A place without photos yields a Photo with an empty URL, not an error.
func (c *Client) FetchPhoto(ctx context.Context, name string) (models.Photo, error) {
	var (
		placeID string
		status  string
	)

	if id, ok := c.placeIDs.Get(name); ok {
		placeID = id
	} else {
		cand, err := c.findPlace(ctx, name, "place_id,photos,business_status")
		if err != nil {
			return models.Photo{}, err
		}
		status = cand.BusinessStatus
		if len(cand.Photos) > 0 && cand.Photos[0].PhotoReference != "" {
			return c.photo(cand.Photos[0].PhotoReference, status), nil
		}
		placeID = cand.PlaceID
	}
	if placeID == "" {
		return models.Photo{}, ErrNotFound
	}

	resp, err := c.details(ctx, placeID, "photos,business_status")
	if err != nil {
		return models.Photo{}, err
	}
	if resp.Result.BusinessStatus != "" {
		status = resp.Result.BusinessStatus
	}
	if len(resp.Result.Photos) == 0 {
		return models.Photo{IsClosed: status == businessStatusClosed, BusinessStatus: status}, nil
	}
	return c.photo(resp.Result.Photos[0].PhotoReference, status), nil
}

func (c *Client) photo(ref, status string) models.Photo {
	return models.Photo{
		PhotoURL:       c.photoURL(ref),
		IsClosed:       status == businessStatusClosed,
		BusinessStatus: status,
	}
}

// FetchReviews returns the review document of the named restaurant with
// reviews sorted newest first.
func (c *Client) FetchReviews(ctx context.Context, name string) (models.Reviews, error) {
	placeID, err := c.placeID(ctx, name)
	if err != nil {
		return models.Reviews{}, err
	}

	resp, err := c.details(ctx, placeID, "place_id,name,rating,user_ratings_total,reviews")
	if err != nil {
		return models.Reviews{}, err
	}

	reviews := resp.Result.Reviews
	if reviews == nil {
		reviews = []models.Review{}
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].Time > reviews[j].Time
	})

	return models.Reviews{
		PlaceID:          placeID,
		Name:             name,
		Rating:           resp.Result.Rating,
		UserRatingsTotal: resp.Result.UserRatingsTotal,
		Reviews:          reviews,
		UpdatedAt:        time.Now().UTC(),
	}, nil
}

// FetchNearbyPoints lists places of category around origin. The radius is
// clamped to the API maximum. ZERO_RESULTS is an empty list.
func (c *Client) FetchNearbyPoints(ctx context.Context, origin geo.Point, radiusMeters float64, category Category) ([]models.Amenity, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	radius := geo.ClampRadius(radiusMeters)

	params := url.Values{}
	params.Set("location", origin.String())
	params.Set("radius", fmt.Sprintf("%d", int(math.Round(radius))))
	if category.PlaceType != "" {
		params.Set("type", category.PlaceType)
	}
	if category.Keyword != "" {
		params.Set("keyword", category.Keyword)
	}
	if c.language != "" {
		params.Set("language", c.language)
	}

	var resp nearbyResponse
	err := c.get(ctx, endpointNearby, params, &resp)
	switch {
	case err == nil:
	case isNotFound(err):
		return []models.Amenity{}, nil
	default:
		logUpstream(ctx, endpointNearby, category.Keyword, err)
		return nil, err
	}

	out := make([]models.Amenity, 0, len(resp.Results))
	for _, r := range resp.Results {
		a := models.Amenity{
			PlaceID: r.PlaceID,
			Name:    r.Name,
			Address: r.Vicinity,
			Brand:   category.Keyword,
			Coordinates: geo.Point{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
		}
		if r.OpeningHours != nil {
			a.OpenNow = r.OpeningHours.OpenNow
		}
		out = append(out, a)
	}
	return out, nil
}
