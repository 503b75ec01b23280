// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the hidden-gems pipeline:
// catalog rows and details fetched from Steam, review aggregates, the
// persisted candidate records, and the configuration consumed by every stage.
package types

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// CatalogEntry is one row of the full catalog index.
type CatalogEntry struct {
	ID   int    `json:"appid" yaml:"appid"`
	Name string `json:"name" yaml:"name"`
}

// FlexInt decodes a JSON number or a numeric string. Steam reports
// required_age as either 18 or "18" depending on the title.
type FlexInt int

// UnmarshalJSON accepts numbers, numeric strings, empty strings and null.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Values like "18+" are rare but real; keep the leading digits.
		digits := strings.TrimRightFunc(s, func(r rune) bool { return r < '0' || r > '9' })
		n, err = strconv.Atoi(digits)
		if err != nil {
			return nil
		}
	}
	*f = FlexInt(n)
	return nil
}

// MarshalJSON writes the value as a plain number.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// Genre is one entry of the appdetails genre list.
type Genre struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// PriceOverview holds the store price for priced titles.
type PriceOverview struct {
	Currency       string `json:"currency" yaml:"currency"`
	Final          int    `json:"final" yaml:"final"`
	FinalFormatted string `json:"final_formatted" yaml:"final_formatted"`
}

// ReleaseDate describes release status.
type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon" yaml:"coming_soon"`
	Date       string `json:"date" yaml:"date"`
}

// ContentDescriptors are Steam's mature content flags.
type ContentDescriptors struct {
	IDs   []int  `json:"ids" yaml:"ids"`
	Notes string `json:"notes" yaml:"notes"`
}

// ItemDetail is the projection of Steam's appdetails payload the pipeline
// reads. Unknown fields in the payload are ignored.
type ItemDetail struct {
	AppID              int                `json:"steam_appid" yaml:"steam_appid"`
	Type               string             `json:"type" yaml:"type"`
	Name               string             `json:"name" yaml:"name"`
	RequiredAge        FlexInt            `json:"required_age" yaml:"required_age"`
	IsFree             bool               `json:"is_free" yaml:"is_free"`
	HeaderImage        string             `json:"header_image" yaml:"header_image"`
	ShortDescription   string             `json:"short_description" yaml:"short_description"`
	SupportedLanguages string             `json:"supported_languages" yaml:"supported_languages"`
	Genres             []Genre            `json:"genres" yaml:"genres"`
	PriceOverview      *PriceOverview     `json:"price_overview,omitempty" yaml:"price_overview,omitempty"`
	ReleaseDate        ReleaseDate        `json:"release_date" yaml:"release_date"`
	ContentDescriptors ContentDescriptors `json:"content_descriptors" yaml:"content_descriptors"`
	AdultContent       string             `json:"adult_content_description" yaml:"adult_content_description,omitempty"`
	Publishers         []string           `json:"publishers" yaml:"publishers"`
	Developers         []string           `json:"developers" yaml:"developers"`
}

// GenreNames returns the genre descriptions in source order.
func (d ItemDetail) GenreNames() []string {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		if g.Description != "" {
			names = append(names, g.Description)
		}
	}
	return names
}

// PriceLabel returns "Free to play", the formatted store price, or
// "Price varies" when Steam reports neither.
func (d ItemDetail) PriceLabel() string {
	if d.IsFree {
		return "Free to play"
	}
	if d.PriceOverview != nil && d.PriceOverview.FinalFormatted != "" {
		return d.PriceOverview.FinalFormatted
	}
	return "Price varies"
}

// ReviewAggregate is the per-app review summary (Steam's query_summary).
type ReviewAggregate struct {
	TotalReviews    int    `json:"total_reviews" yaml:"total_reviews"`
	TotalPositive   int    `json:"total_positive" yaml:"total_positive"`
	TotalNegative   int    `json:"total_negative" yaml:"total_negative"`
	ReviewScore     int    `json:"review_score" yaml:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc" yaml:"review_score_desc"`
}

// PositiveRatio returns positive/total, or 0 when there are no reviews.
func (r ReviewAggregate) PositiveRatio() float64 {
	if r.TotalReviews <= 0 {
		return 0
	}
	return float64(r.TotalPositive) / float64(r.TotalReviews)
}

// CandidateRecord is the persisted projection of an item that survived the
// filter pipeline. The candidate store holds at most one record per ID.
type CandidateRecord struct {
	ID              int      `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Genres          []string `json:"genres,omitempty" yaml:"genres,omitempty"`
	IsFree          bool     `json:"is_free" yaml:"is_free"`
	Price           string   `json:"price,omitempty" yaml:"price,omitempty"`
	HeaderImage     string   `json:"header_image,omitempty" yaml:"header_image,omitempty"`
	TotalReviews    int      `json:"total_reviews" yaml:"total_reviews"`
	PositiveReviews int      `json:"positive_reviews" yaml:"positive_reviews"`
	ReviewScoreDesc string   `json:"review_score_desc,omitempty" yaml:"review_score_desc,omitempty"`
	ReleaseDate     string   `json:"release_date,omitempty" yaml:"release_date,omitempty"`
	Publisher       string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
}

// NewCandidateRecord builds the denormalized record from cached detail and
// review data.
func NewCandidateRecord(id int, d ItemDetail, r ReviewAggregate) CandidateRecord {
	rec := CandidateRecord{
		ID:              id,
		Name:            d.Name,
		Genres:          d.GenreNames(),
		IsFree:          d.IsFree,
		Price:           d.PriceLabel(),
		HeaderImage:     d.HeaderImage,
		TotalReviews:    r.TotalReviews,
		PositiveReviews: r.TotalPositive,
		ReviewScoreDesc: r.ReviewScoreDesc,
		ReleaseDate:     d.ReleaseDate.Date,
	}
	if len(d.Publishers) > 0 {
		rec.Publisher = d.Publishers[0]
	}
	return rec
}

// PoolMeta is rewritten on every candidate store write. Size equals the
// store length at write time; LastRefresh never moves backwards.
type PoolMeta struct {
	LastRefresh time.Time `json:"last_refresh" yaml:"last_refresh"`
	Size        int       `json:"size" yaml:"size"`
}
