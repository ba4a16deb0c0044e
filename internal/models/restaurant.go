// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package models

import (
	"time"

	"github.com/tomtom215/dinemap/internal/geo"
)

// Rating is the aggregate Google rating of a restaurant.
type Rating struct {
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"userRatingsTotal"`
}

// Photo is the representative photo of a restaurant's building.
type Photo struct {
	PhotoURL       string `json:"photoUrl"`
	IsClosed       bool   `json:"isClosed,omitempty"`
	BusinessStatus string `json:"businessStatus,omitempty"`
}

// Cacheable reports whether the photo is worth keeping in memory.
// Closed places and empty URLs are always re-checked.
func (p Photo) Cacheable() bool {
	return p.PhotoURL != "" && !p.IsClosed
}

// Review is a single user review.
type Review struct {
	AuthorName      string `json:"author_name"`
	Rating          int    `json:"rating"`
	Text            string `json:"text"`
	Time            int64  `json:"time"`
	RelativeTime    string `json:"relative_time_description"`
	ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
}

// Reviews is the cached review document of a restaurant.
type Reviews struct {
	PlaceID          string    `json:"placeId"`
	Name             string    `json:"name"`
	Rating           float64   `json:"rating"`
	UserRatingsTotal int       `json:"userRatingsTotal"`
	Reviews          []Review  `json:"reviews"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// RatingOf projects the rating part of a review document.
func (r Reviews) RatingOf() Rating {
	return Rating{Rating: r.Rating, UserRatingsTotal: r.UserRatingsTotal}
}

// Price is the price information recorded for a restaurant.
type Price struct {
	RestaurantName string    `json:"restaurantName"`
	PriceLevel     int       `json:"priceLevel"`
	Currency       string    `json:"currency,omitempty"`
	Min            float64   `json:"min,omitempty"`
	Max            float64   `json:"max,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Restaurant is an entry of the guide. Only the fields the cache engine
// needs are kept.
type Restaurant struct {
	Name        string    `json:"name"`
	Building    string    `json:"building,omitempty"`
	Category    string    `json:"category,omitempty"`
	Coordinates geo.Point `json:"coordinates"`
}

// Amenity is a nearby store (convenience store with a public toilet, etc.).
type Amenity struct {
	PlaceID     string    `json:"place_id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Coordinates geo.Point `json:"coordinates"`
	OpenNow     *bool     `json:"open_now,omitempty"`
}

// Home is the home screen aggregate: ratings of the featured restaurants,
// the guide's own restaurant list and the known photo links.
type Home struct {
	PopularRatings    map[string]Rating `json:"popularRatings"`
	MarketRatings     map[string]Rating `json:"marketRatings"`
	CustomRestaurants []Restaurant      `json:"customRestaurants"`
	ImageURLs         map[string]string `json:"imageUrls"`
	Timestamp         time.Time         `json:"timestamp"`
}
