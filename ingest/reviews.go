package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/spektr-org/insightbot/schema"
	"github.com/spektr-org/insightbot/store"
)

// ============================================================================
// REVIEW CSV — Parses crawled review exports into schema.Review records
// ============================================================================
// Headers are mapped through schema.MapReviewHeader; unmapped columns are
// skipped. review_date is parsed from Korean date text and left NULL when
// the text holds no valid calendar date.
// ============================================================================

// ErrNoRows is returned when a source yields no usable data rows.
var ErrNoRows = eris.New("ingest: no usable data rows")

var koreanDate = regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월\s*(\d{1,2})일`)

var utf8BOM = []byte("\xef\xbb\xbf")

// ParseKoreanDate extracts "YYYY년 M월 D일" from text. ok is false when
// there is no match or the date does not exist on the calendar.
func ParseKoreanDate(text string) (time.Time, bool) {
	m := koreanDate.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// ParseReviews parses CSV bytes (optionally BOM-prefixed) into reviews.
func ParseReviews(data []byte) ([]schema.Review, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read review headers")
	}

	// column index → canonical key, first occurrence wins
	mapping := make([]string, len(headers))
	seen := make(map[string]bool)
	for i, h := range headers {
		key, ok := schema.MapReviewHeader(h)
		if ok && !seen[key] {
			mapping[i] = key
			seen[key] = true
		}
	}
	if !seen["review_content"] {
		return nil, eris.New("ingest: review CSV has no review_content column")
	}

	var reviews []schema.Review
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: review row %d", len(reviews)+2)
		}
		if blankRow(row) {
			continue
		}

		rec := schema.Review{ID: int64(len(reviews) + 1)}
		for i, val := range row {
			if i >= len(mapping) {
				break
			}
			switch mapping[i] {
			case "branch_name":
				rec.Branch = strings.TrimSpace(val)
			case "date_text":
				rec.DateText = val
			case "nickname":
				rec.Nickname = val
			case "review_content":
				rec.Content = val
			case "wait_time":
				rec.WaitTime = val
			}
		}
		if d, ok := ParseKoreanDate(rec.DateText); ok {
			rec.Date = d
		}
		reviews = append(reviews, rec)
	}

	if len(reviews) == 0 {
		return nil, ErrNoRows
	}
	return reviews, nil
}

// LoadReviews fetches and parses a review CSV into a dataset.
func LoadReviews(ctx context.Context, fetch *Fetcher, path string) (store.Dataset, error) {
	data, err := fetch.Fetch(ctx, path)
	if err != nil {
		return store.Dataset{}, err
	}
	reviews, err := ParseReviews(data)
	if err != nil {
		return store.Dataset{}, eris.Wrapf(err, "ingest: %s", path)
	}

	table := schema.ReviewsTable()
	return store.Dataset{
		Table:   table,
		Reviews: reviews,
		Source: store.SourceInfo{
			Path:       path,
			ActivePath: path,
			Rows:       len(reviews),
			Columns:    table.ColumnKeys(),
		},
	}, nil
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
