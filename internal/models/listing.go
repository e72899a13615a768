// internal/models/listing.go
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Listing is an immutable marketplace record supplied by the caller.
// The engine never writes to it.
type Listing struct {
	ID               string        `json:"id"`
	URL              string        `json:"url,omitempty"`
	Title            string        `json:"title"`
	ShortDescription string        `json:"shortDescription"`
	LongDescription  string        `json:"longDescription"`
	Tags             []string      `json:"tags"`
	Category         string        `json:"category"`
	Price            *float64      `json:"price,omitempty"`
	ImagesCount      int           `json:"imagesCount"`
	VideosCount      int           `json:"videosCount"`
	Rating           []RatingCount `json:"rating"`
	ReviewsCount     int           `json:"reviewsCount"`
	LastUpdate       *Date         `json:"lastUpdate,omitempty"`
}

type RatingCount struct {
	Stars int `json:"stars"`
	Count int `json:"count"`
}

// BestSellerRef identifies a listing that is always force-included as an exemplar.
type BestSellerRef struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title"`
}

// Valid reports whether the reference can be matched against a listing.
func (b BestSellerRef) Valid() bool {
	return strings.TrimSpace(b.ID) != "" || strings.TrimSpace(b.URL) != ""
}

// Matches reports whether the reference points at the listing (id first, then url).
func (b BestSellerRef) Matches(l Listing) bool {
	if b.ID != "" && l.ID != "" {
		return b.ID == l.ID
	}
	if b.URL != "" && l.URL != "" {
		return b.URL == l.URL
	}
	return false
}

// Identity returns id if present, else url, else "".
func (l Listing) Identity() string {
	if l.ID != "" {
		return l.ID
	}
	return l.URL
}

// Validate returns the list of missing required fields.
func (l Listing) Validate() []string {
	var missing []string
	if l.Identity() == "" {
		missing = append(missing, "id|url")
	}
	if strings.TrimSpace(l.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(l.Category) == "" {
		missing = append(missing, "category")
	}
	return missing
}

// AverageRating is the count-weighted star average, 0 when no ratings exist.
func (l Listing) AverageRating() float64 {
	var total, weighted int
	for _, r := range l.Rating {
		if r.Stars < 1 || r.Stars > 5 || r.Count <= 0 {
			continue
		}
		total += r.Count
		weighted += r.Stars * r.Count
	}
	if total == 0 {
		return 0
	}
	return float64(weighted) / float64(total)
}

// Reviews returns reviewsCount, falling back to the sum of rating counts.
func (l Listing) Reviews() int {
	if l.ReviewsCount > 0 {
		return l.ReviewsCount
	}
	sum := 0
	for _, r := range l.Rating {
		if r.Count > 0 {
			sum += r.Count
		}
	}
	return sum
}

// PriceValue returns the price or 0 for free/unknown listings.
func (l Listing) PriceValue() float64 {
	if l.Price == nil {
		return 0
	}
	return *l.Price
}

// DaysSinceUpdate returns whole days between lastUpdate and now; ok is false without a date.
func (l Listing) DaysSinceUpdate(now time.Time) (days float64, ok bool) {
	if l.LastUpdate == nil || l.LastUpdate.IsZero() {
		return 0, false
	}
	d := now.Sub(l.LastUpdate.Time).Hours() / 24
	if d < 0 {
		d = 0
	}
	return d, true
}

// Date accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(t time.Time) *Date {
	return &Date{Time: t}
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}
