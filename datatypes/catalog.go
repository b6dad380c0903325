// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures shared across the
// recommendation service.
//
// This file contains the catalog item model and the controlled
// vocabulary used to validate extracted filters. For chat request and
// response types, see chat.go.
package datatypes

import "strings"

// CatalogItem is one movie or TV show in the indexed catalog.
//
// Genres always holds at least one entry and Year is a four digit
// release year. Summary is the text that was embedded at indexing time.
type CatalogItem struct {
	Title       string   `json:"title"`
	Genres      []string `json:"genres"`
	Year        int      `json:"year"`
	ContentType string   `json:"content_type"`
	Country     string   `json:"country"`
	Summary     string   `json:"summary"`
	Cast        []string `json:"cast,omitempty"`
	Director    string   `json:"director,omitempty"`
	Rating      string   `json:"rating,omitempty"`
	Duration    string   `json:"duration,omitempty"`
}

// SourceInfo is the compact projection of a retrieved item that is
// returned to API clients alongside the answer text.
type SourceInfo struct {
	Title       string   `json:"title"`
	Genre       []string `json:"genre"`
	Year        int      `json:"year"`
	Type        string   `json:"type"`
	Rating      string   `json:"rating,omitempty"`
	Description string   `json:"description,omitempty"`
	Score       float64  `json:"score,omitempty"`
}

// QueryFilters holds the structured constraints extracted from a user
// query. Zero values mean "no constraint": an empty Genres slice, a
// zero Year, and empty strings all leave that dimension unfiltered.
type QueryFilters struct {
	Genres      []string `json:"genres,omitempty"`
	Year        int      `json:"year,omitempty"`
	YearMin     int      `json:"year_min,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Country     string   `json:"country,omitempty"`
}

// Empty reports whether no constraint is set on any dimension.
func (f QueryFilters) Empty() bool {
	return len(f.Genres) == 0 && f.Year == 0 && f.YearMin == 0 &&
		f.ContentType == "" && f.Country == ""
}

// Content type values accepted by the catalog. Anything else coming out
// of extraction is dropped rather than passed to the index.
const (
	ContentTypeMovie  = "Movie"
	ContentTypeTVShow = "TV Show"
)

// knownGenres is the canonical genre vocabulary. Extraction output is
// matched case-insensitively against this list and unknown genres are
// discarded.
var knownGenres = []string{
	"Action",
	"Adventure",
	"Animation",
	"Comedy",
	"Crime",
	"Documentary",
	"Drama",
	"Family",
	"Fantasy",
	"History",
	"Horror",
	"Music",
	"Mystery",
	"Romance",
	"Sci-Fi",
	"Sport",
	"Thriller",
	"War",
	"Western",
}

// knownCountries maps lowercase aliases to canonical country names.
// The alias set covers the English and Vietnamese spellings seen in
// real traffic.
var knownCountries = map[string]string{
	"united states": "United States",
	"usa":           "United States",
	"us":            "United States",
	"american":      "United States",
	"america":       "United States",
	"mỹ":            "United States",
	"hoa kỳ":        "United States",
	"united kingdom": "United Kingdom",
	"uk":             "United Kingdom",
	"british":        "United Kingdom",
	"england":        "United Kingdom",
	"anh":            "United Kingdom",
	"south korea":    "South Korea",
	"korea":          "South Korea",
	"korean":         "South Korea",
	"hàn quốc":       "South Korea",
	"hàn":            "South Korea",
	"japan":          "Japan",
	"japanese":       "Japan",
	"nhật bản":       "Japan",
	"nhật":           "Japan",
	"china":          "China",
	"chinese":        "China",
	"trung quốc":     "China",
	"france":         "France",
	"french":         "France",
	"pháp":           "France",
	"india":          "India",
	"indian":         "India",
	"ấn độ":          "India",
	"thailand":       "Thailand",
	"thai":           "Thailand",
	"thái lan":       "Thailand",
	"vietnam":        "Vietnam",
	"vietnamese":     "Vietnam",
	"việt nam":       "Vietnam",
	"spain":          "Spain",
	"spanish":        "Spain",
	"tây ban nha":    "Spain",
	"germany":        "Germany",
	"german":         "Germany",
	"đức":            "Germany",
	"canada":         "Canada",
	"canadian":       "Canada",
	"australia":      "Australia",
	"australian":     "Australia",
	"úc":             "Australia",
}

// genreAliases maps lowercase aliases, including Vietnamese genre
// names, to entries of knownGenres.
var genreAliases = map[string]string{
	"science fiction": "Sci-Fi",
	"scifi":            "Sci-Fi",
	"sci fi":           "Sci-Fi",
	"khoa học viễn tưởng": "Sci-Fi",
	"hành động":        "Action",
	"phiêu lưu":        "Adventure",
	"hoạt hình":        "Animation",
	"hài":              "Comedy",
	"hài hước":         "Comedy",
	"tội phạm":         "Crime",
	"tài liệu":         "Documentary",
	"chính kịch":       "Drama",
	"tâm lý":           "Drama",
	"gia đình":         "Family",
	"giả tưởng":        "Fantasy",
	"thần thoại":       "Fantasy",
	"lịch sử":          "History",
	"kinh dị":          "Horror",
	"ma":               "Horror",
	"âm nhạc":          "Music",
	"bí ẩn":            "Mystery",
	"trinh thám":       "Mystery",
	"lãng mạn":         "Romance",
	"tình cảm":         "Romance",
	"thể thao":         "Sport",
	"giật gân":         "Thriller",
	"hồi hộp":          "Thriller",
	"chiến tranh":      "War",
	"cao bồi":          "Western",
}

// CanonicalGenre resolves a raw genre string against the controlled
// vocabulary.
//
// # Inputs
//   - raw: genre text from extraction, any casing or language.
//
// # Outputs
//   - string: the canonical genre name when recognized.
//   - bool: false when the genre is not in the vocabulary.
func CanonicalGenre(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	if canon, ok := genreAliases[key]; ok {
		return canon, true
	}
	for _, g := range knownGenres {
		if strings.ToLower(g) == key {
			return g, true
		}
	}
	return "", false
}

// CanonicalCountry resolves a raw country string against the alias
// table. Returns false for unrecognized countries.
func CanonicalCountry(raw string) (string, bool) {
	canon, ok := knownCountries[strings.ToLower(strings.TrimSpace(raw))]
	return canon, ok
}

// CanonicalContentType normalizes movie/series wording to the two
// catalog content types. Returns false when the input names neither.
func CanonicalContentType(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "movie", "movies", "film", "films", "phim lẻ", "phim điện ảnh":
		return ContentTypeMovie, true
	case "tv show", "tv shows", "tv_show", "tv_shows", "tv", "series", "show", "shows", "tv series", "phim bộ", "phim truyền hình":
		return ContentTypeTVShow, true
	}
	return "", false
}

// KnownGenres returns a copy of the canonical genre vocabulary.
func KnownGenres() []string {
	out := make([]string, len(knownGenres))
	copy(out, knownGenres)
	return out
}

// Normalize canonicalizes every dimension of the filter set in place,
// dropping values outside the controlled vocabulary. Aliases of the
// same canonical genre collapse to one entry.
func (f *QueryFilters) Normalize() {
	genres := f.Genres[:0]
	seen := make(map[string]bool, len(f.Genres))
	for _, g := range f.Genres {
		if canon, ok := CanonicalGenre(g); ok && !seen[canon] {
			seen[canon] = true
			genres = append(genres, canon)
		}
	}
	f.Genres = genres
	if f.Country != "" {
		if canon, ok := CanonicalCountry(f.Country); ok {
			f.Country = canon
		} else {
			f.Country = ""
		}
	}
	if f.ContentType != "" {
		if canon, ok := CanonicalContentType(f.ContentType); ok {
			f.ContentType = canon
		} else {
			f.ContentType = ""
		}
	}
	if f.Year != 0 && (f.Year < 1900 || f.Year > 2100) {
		f.Year = 0
	}
	if f.YearMin != 0 && (f.YearMin < 1900 || f.YearMin > 2100) {
		f.YearMin = 0
	}
}
