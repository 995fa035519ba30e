package services

import (
	"encoding/json"
	"strconv"
	"strings"

	"airbnb-ingest/models"
	"airbnb-ingest/utils"
)

// Normalizer maps loosely-structured listing records into flat Listings.
// It is a pure transform: no storage access, one record in, one Listing out.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize extracts the flat fields and child collections from one raw
// record. The second return value is false when the record must be skipped:
// not an object, or no usable room_id. Skips are expected for malformed
// entries and are logged, not errored.
//
// Nested sub-objects degrade gracefully — a malformed rating or price block
// leaves the corresponding fields null instead of failing the record. The
// original record bytes are carried through untouched as RawPayload.
func (n *Normalizer) Normalize(raw json.RawMessage) (*models.Listing, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		n.logger.Warn("[normalize] Dropping record: top-level value is not an object")
		return nil, false
	}

	roomID, ok := asRoomID(obj["room_id"])
	if !ok || roomID == 0 {
		n.logger.Warn("[normalize] Dropping record: no room_id")
		return nil, false
	}

	l := &models.Listing{
		RoomID:     roomID,
		Category:   asString(obj["category"]),
		Kind:       asString(obj["kind"]),
		Name:       asString(obj["name"]),
		Title:      asString(obj["title"]),
		Type:       asString(obj["type"]),
		Badges:     asStringSlice(obj["badges"]),
		RawPayload: raw,
	}

	if rating, ok := obj["rating"].(map[string]interface{}); ok {
		l.RatingValue = asFloat(rating["value"])
		// reviewCount shows up as both number and string in the wild;
		// coercion failure means null, never a dropped record.
		l.RatingReviewCount = asInt(rating["reviewCount"])
	}

	price, _ := obj["price"].(map[string]interface{})
	if unit, ok := price["unit"].(map[string]interface{}); ok {
		l.PriceAmount = asFloat(unit["amount"])
		l.PriceQualifier = asString(unit["qualifier"])
		l.PriceCurrencySymbol = asString(unit["currency_symbol"])
		if l.PriceCurrencySymbol == "" {
			// some feeds misspell the key
			l.PriceCurrencySymbol = asString(unit["curency_symbol"])
		}
	}

	if coords, ok := obj["coordinates"].(map[string]interface{}); ok {
		l.Latitude = asFloat(coords["latitude"])
		l.Longitude = asFloat(coords["longitude"])
		if l.Longitude == nil {
			l.Longitude = asFloat(coords["longitud"])
		}
	}

	// Images keep their original 1-based position: entries without a usable
	// URL are dropped, surviving entries are NOT renumbered, so image_order
	// still reflects the source display order.
	if images, ok := obj["images"].([]interface{}); ok {
		for i, item := range images {
			img, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			url := asString(img["url"])
			if url == "" {
				continue
			}
			l.Images = append(l.Images, models.ListingImage{URL: url, Order: i + 1})
		}
	}

	if breakdown, ok := price["break_down"].([]interface{}); ok {
		for _, item := range breakdown {
			line, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			l.PriceBreakdown = append(l.PriceBreakdown, models.PriceBreakdownLine{
				Description: asString(line["description"]),
				Amount:      asFloat(line["amount"]),
				Currency:    asString(line["currency"]),
			})
		}
	}

	return l, true
}

// asRoomID accepts the natural key as a JSON number or a numeric string.
func asRoomID(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return &f
		}
	}
	return nil
}

func asInt(v interface{}) *int64 {
	switch t := v.(type) {
	case float64:
		i := int64(t)
		return &i
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil {
			return &i
		}
	}
	return nil
}

// asStringSlice defaults to an empty (not nil) slice so badges persist as an
// empty array rather than NULL.
func asStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
