package services

import (
	"encoding/json"
	"reflect"
	"testing"

	"airbnb-ingest/utils"
)

func TestNormalizeSkipsRecordWithoutRoomID(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())

	tests := []string{
		`{"name": "no id"}`,
		`{"room_id": 0, "name": "falsy id"}`,
		`{"room_id": "not-a-number"}`,
		`"just a string"`,
		`[1, 2, 3]`,
		`null`,
	}
	for _, record := range tests {
		if l, ok := n.Normalize(json.RawMessage(record)); ok {
			t.Errorf("Normalize(%s) = %+v; want skip", record, l)
		}
	}
}

func TestNormalizeRoomIDForms(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())

	tests := []struct {
		record string
		want   int64
	}{
		{`{"room_id": 42}`, 42},
		{`{"room_id": "42"}`, 42},
		{`{"room_id": 123456789012}`, 123456789012},
	}
	for _, tt := range tests {
		l, ok := n.Normalize(json.RawMessage(tt.record))
		if !ok {
			t.Errorf("Normalize(%s): unexpected skip", tt.record)
			continue
		}
		if l.RoomID != tt.want {
			t.Errorf("Normalize(%s).RoomID = %d; want %d", tt.record, l.RoomID, tt.want)
		}
	}
}

func TestNormalizeFlatFields(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())
	l, ok := n.Normalize(json.RawMessage(`{
		"room_id": 7,
		"category": "all",
		"kind": "ROOMS",
		"name": "Cozy loft",
		"title": "Loft in Berlin",
		"type": "REGULAR"
	}`))
	if !ok {
		t.Fatal("unexpected skip")
	}
	if l.Category != "all" || l.Kind != "ROOMS" || l.Name != "Cozy loft" ||
		l.Title != "Loft in Berlin" || l.Type != "REGULAR" {
		t.Errorf("flat fields not extracted: %+v", l)
	}
}

func TestNormalizeRatingCoercion(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())

	tests := []struct {
		record      string
		wantValue   *float64
		wantReviews *int64
	}{
		{`{"room_id": 1, "rating": {"value": 4.85, "reviewCount": 132}}`, fptr(4.85), iptr(132)},
		{`{"room_id": 1, "rating": {"value": "4.85", "reviewCount": "132"}}`, fptr(4.85), iptr(132)},
		{`{"room_id": 1, "rating": {"value": 4.5, "reviewCount": "lots"}}`, fptr(4.5), nil},
		{`{"room_id": 1, "rating": "five stars"}`, nil, nil},
		{`{"room_id": 1}`, nil, nil},
	}
	for _, tt := range tests {
		l, ok := n.Normalize(json.RawMessage(tt.record))
		if !ok {
			t.Errorf("Normalize(%s): unexpected skip", tt.record)
			continue
		}
		if !floatPtrEq(l.RatingValue, tt.wantValue) {
			t.Errorf("Normalize(%s).RatingValue = %v; want %v", tt.record, deref(l.RatingValue), deref(tt.wantValue))
		}
		if !intPtrEq(l.RatingReviewCount, tt.wantReviews) {
			t.Errorf("Normalize(%s).RatingReviewCount = %v; want %v", tt.record, l.RatingReviewCount, tt.wantReviews)
		}
	}
}

func TestNormalizePriceUnit(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())
	l, ok := n.Normalize(json.RawMessage(`{
		"room_id": 5,
		"price": {"unit": {"amount": 120.5, "qualifier": "per night", "currency_symbol": "$"}}
	}`))
	if !ok {
		t.Fatal("unexpected skip")
	}
	if !floatPtrEq(l.PriceAmount, fptr(120.5)) {
		t.Errorf("PriceAmount = %v; want 120.5", deref(l.PriceAmount))
	}
	if l.PriceQualifier != "per night" || l.PriceCurrencySymbol != "$" {
		t.Errorf("qualifier/symbol = %q/%q; want 'per night'/'$'", l.PriceQualifier, l.PriceCurrencySymbol)
	}
}

func TestNormalizeCurrencySymbolFallback(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())
	l, ok := n.Normalize(json.RawMessage(`{
		"room_id": 5,
		"price": {"unit": {"amount": 99, "curency_symbol": "€"}}
	}`))
	if !ok {
		t.Fatal("unexpected skip")
	}
	if l.PriceCurrencySymbol != "€" {
		t.Errorf("PriceCurrencySymbol = %q; want € via misspelled-key fallback", l.PriceCurrencySymbol)
	}
}

func TestNormalizeCoordinateFallback(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())
	l, ok := n.Normalize(json.RawMessage(`{
		"room_id": 5,
		"coordinates": {"latitude": 10.5, "longitud": 20.1}
	}`))
	if !ok {
		t.Fatal("unexpected skip")
	}
	if !floatPtrEq(l.Latitude, fptr(10.5)) {
		t.Errorf("Latitude = %v; want 10.5", deref(l.Latitude))
	}
	if !floatPtrEq(l.Longitude, fptr(20.1)) {
		t.Errorf("Longitude = %v; want 20.1 via misspelled-key fallback", deref(l.Longitude))
	}

	// The correctly spelled key wins when both are present.
	l, _ = n.Normalize(json.RawMessage(`{
		"room_id": 5,
		"coordinates": {"longitude": 30.0, "longitud": 20.1}
	}`))
	if !floatPtrEq(l.Longitude, fptr(30.0)) {
		t.Errorf("Longitude = %v; want 30.0 from the primary key", deref(l.Longitude))
	}
}

func TestNormalizeImagesKeepOriginalOrder(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())
	l, ok := n.Normalize(json.RawMessage(`{
		"room_id": 9,
		"images": [
			{"url": "https://img.example/a.jpg"},
			{"caption": "no url here"},
			"not an object",
			{"url": "https://img.example/d.jpg"}
		]
	}`))
	if !ok {
		t.Fatal("unexpected skip")
	}
	if len(l.Images) != 2 {
		t.Fatalf("len(Images) = %d; want 2", len(l.Images))
	}
	// Dropped entries leave gaps: surviving images keep their source position.
	if l.Images[0].Order != 1 || l.Images[1].Order != 4 {
		t.Errorf("image orders = %d, %d; want 1, 4", l.Images[0].Order, l.Images[1].Order)
	}
	if l.Images[1].URL != "https://img.example/d.jpg" {
		t.Errorf("Images[1].URL = %q", l.Images[1].URL)
	}
}

func TestNormalizePriceBreakdown(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())
	l, ok := n.Normalize(json.RawMessage(`{
		"room_id": 9,
		"price": {"break_down": [
			{"description": "2 nights", "amount": 240, "currency": "USD"},
			{"description": "cleaning fee"},
			"junk"
		]}
	}`))
	if !ok {
		t.Fatal("unexpected skip")
	}
	if len(l.PriceBreakdown) != 2 {
		t.Fatalf("len(PriceBreakdown) = %d; want 2 (objects kept, junk dropped)", len(l.PriceBreakdown))
	}
	if l.PriceBreakdown[0].Description != "2 nights" || !floatPtrEq(l.PriceBreakdown[0].Amount, fptr(240)) {
		t.Errorf("breakdown[0] = %+v", l.PriceBreakdown[0])
	}
	if l.PriceBreakdown[1].Amount != nil || l.PriceBreakdown[1].Currency != "" {
		t.Errorf("breakdown[1] missing fields should stay null: %+v", l.PriceBreakdown[1])
	}
}

func TestNormalizeBadgesDefaultEmpty(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())

	l, _ := n.Normalize(json.RawMessage(`{"room_id": 1}`))
	if l.Badges == nil || len(l.Badges) != 0 {
		t.Errorf("Badges = %#v; want empty non-nil slice", l.Badges)
	}

	l, _ = n.Normalize(json.RawMessage(`{"room_id": 1, "badges": ["Guest favorite", 3, "Superhost"]}`))
	want := []string{"Guest favorite", "Superhost"}
	if !reflect.DeepEqual(l.Badges, want) {
		t.Errorf("Badges = %#v; want %#v", l.Badges, want)
	}
}

func TestNormalizeRawPayloadRoundTrip(t *testing.T) {
	n := NewNormalizer(utils.NewLogger())
	record := `{"room_id": 7, "extra_future_field": "x", "nested": {"deep": [1, 2, 3]}}`

	l, ok := n.Normalize(json.RawMessage(record))
	if !ok {
		t.Fatal("unexpected skip")
	}

	var original, stored map[string]interface{}
	if err := json.Unmarshal([]byte(record), &original); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(l.RawPayload, &stored); err != nil {
		t.Fatalf("stored payload is not valid JSON: %v", err)
	}
	if !reflect.DeepEqual(original, stored) {
		t.Errorf("payload round trip mismatch:\n original: %#v\n stored:   %#v", original, stored)
	}
}

func fptr(f float64) *float64 { return &f }
func iptr(i int64) *int64     { return &i }

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
