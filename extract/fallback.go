// Copyright (C) 2025 Reelmind (dev@reelmind.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/reelmind/reelmind/datatypes"
)

// Regexes for the deterministic fallback path. Patterns match both
// English and Vietnamese phrasings.
var (
	yearExactRe = regexp.MustCompile(`(?:in|from|year|của|năm)\s*(19\d{2}|20\d{2})`)
	yearBareRe  = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	yearAfterRe = regexp.MustCompile(`(?:after|since|sau|từ)\s*(?:năm\s*)?(19\d{2}|20\d{2})`)
	// Vietnamese alternatives sit outside the \b groups: Go's \b is
	// ASCII-only and never matches next to a diacritic character.
	recentRe = regexp.MustCompile(`(?i)\b(recent|new|newest|latest)\b|gần đây|mới`)

	movieRe = regexp.MustCompile(`(?i)\b(movies?|films?)\b|phim lẻ|phim điện ảnh`)
	showRe  = regexp.MustCompile(`(?i)\b(tv shows?|tv series|series|shows?)\b|phim bộ|phim truyền hình`)

	countryRe = regexp.MustCompile(`(?i)\b(american|america|usa|us|british|england|uk|korean|korea|japanese|japan|chinese|china|french|france|indian|india|thai|thailand|vietnamese|spanish|spain|german|germany|canadian|canada|australian|australia)\b|(mỹ|hoa kỳ|hàn quốc|nhật bản|trung quốc|pháp|ấn độ|thái lan|việt nam|tây ban nha|đức|úc|anh)`)
)

// genreProbe lists the phrases scanned for during fallback, longest
// first so multi-word Vietnamese genres win over their prefixes.
var genreProbe = []string{
	"khoa học viễn tưởng", "science fiction",
	"chính kịch", "chiến tranh", "hoạt hình", "hành động", "phiêu lưu",
	"tội phạm", "tài liệu", "gia đình", "giả tưởng", "thần thoại",
	"lãng mạn", "tình cảm", "thể thao", "giật gân", "hồi hộp",
	"trinh thám", "lịch sử", "kinh dị", "âm nhạc", "bí ẩn", "tâm lý",
	"cao bồi", "hài hước", "hài",
	"documentary", "adventure", "animation", "thriller", "western",
	"fantasy", "history", "mystery", "romance", "action", "comedy",
	"family", "horror", "sci-fi", "scifi", "crime", "drama", "music",
	"sport", "war",
}

// fallbackExtract builds a NormalizedQuery from the raw text alone.
// The raw query doubles as the embedding summary.
func fallbackExtract(raw string) NormalizedQuery {
	lower := strings.ToLower(raw)
	var f datatypes.QueryFilters

	for _, probe := range genreProbe {
		if strings.Contains(lower, probe) {
			if canon, ok := datatypes.CanonicalGenre(probe); ok {
				f.Genres = appendUnique(f.Genres, canon)
			}
		}
	}

	if m := yearAfterRe.FindStringSubmatch(lower); m != nil {
		f.YearMin, _ = strconv.Atoi(m[1])
	} else if m := yearExactRe.FindStringSubmatch(lower); m != nil {
		f.Year, _ = strconv.Atoi(m[1])
	} else if m := yearBareRe.FindStringSubmatch(lower); m != nil {
		f.Year, _ = strconv.Atoi(m[1])
	} else if recentRe.MatchString(lower) {
		f.YearMin = time.Now().Year() - 3
	}

	// A show match wins when both patterns hit, as in "tv movie series".
	if showRe.MatchString(lower) {
		f.ContentType = datatypes.ContentTypeTVShow
	} else if movieRe.MatchString(lower) {
		f.ContentType = datatypes.ContentTypeMovie
	}

	if m := countryRe.FindString(lower); m != "" {
		if canon, ok := datatypes.CanonicalCountry(m); ok {
			f.Country = canon
		}
	}

	return NormalizedQuery{
		Raw:      raw,
		Summary:  raw,
		Filters:  f,
		Fallback: true,
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
