// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package models

import (
	"strings"

	"github.com/tomtom215/dinemap/internal/apperrors"
)

// AttributeKind names one kind of per-restaurant data a batch request can ask for.
type AttributeKind string

// The closed set of attribute kinds.
const (
	KindRating  AttributeKind = "rating"
	KindPhoto   AttributeKind = "photo"
	KindReviews AttributeKind = "reviews"
)

// AllAttributeKinds lists every kind in a fixed order.
var AllAttributeKinds = []AttributeKind{KindRating, KindPhoto, KindReviews}

// Valid reports whether k is one of the known kinds.
func (k AttributeKind) Valid() bool {
	switch k {
	case KindRating, KindPhoto, KindReviews:
		return true
	}
	return false
}

// ParseAttributeKind converts s to an AttributeKind, rejecting unknown values.
func ParseAttributeKind(s string) (AttributeKind, error) {
	k := AttributeKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", apperrors.NewValidation("include", "unknown attribute kind %q", s)
	}
	return k, nil
}

// ParseAttributeKinds parses a list, e.g. the split of "rating,photo".
// Blank elements are skipped.
func ParseAttributeKinds(values []string) ([]AttributeKind, error) {
	kinds := make([]AttributeKind, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		k, err := ParseAttributeKind(v)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
