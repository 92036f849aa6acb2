package segments

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestNormalizeFlat(t *testing.T) {
	raw := `[
		{"FinalSentence": "Welcome to the show.", "StartMs": 0, "EndMs": 2500, "SpeakerId": "Speaker 1"},
		{"FinalSentence": "Thanks for having me.", "StartMs": 3000, "EndMs": 5000, "SpeakerId": "Speaker 2"},
		{"FinalSentence": "Let's get started.", "StartMs": 61000, "EndMs": 63000, "SpeakerId": "Speaker 1"}
	]`

	buckets, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if len(buckets) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(buckets))
	}

	if buckets[0].Minute != 0 || buckets[1].Minute != 1 {
		t.Errorf("Bucket minutes mismatch: %d, %d", buckets[0].Minute, buckets[1].Minute)
	}

	if len(buckets[0].Segments) != 2 {
		t.Errorf("Expected 2 segments in first bucket, got %d", len(buckets[0].Segments))
	}

	if buckets[1].Segments[0].FinalSentence != "Let's get started." {
		t.Errorf("Second bucket segment text mismatch: %s", buckets[1].Segments[0].FinalSentence)
	}

	if buckets[0].Segments[0].FormattedTime != "00:00:00" {
		t.Errorf("FormattedTime mismatch: %s", buckets[0].Segments[0].FormattedTime)
	}
}

func TestNormalizeBucketBoundary(t *testing.T) {
	raw := `[
		{"FinalSentence": "End of minute zero.", "StartMs": 59999, "EndMs": 60500, "SpeakerId": "Speaker 1"},
		{"FinalSentence": "Start of minute one.", "StartMs": 60000, "EndMs": 62000, "SpeakerId": "Speaker 1"}
	]`

	buckets, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if len(buckets) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Minute != 0 {
		t.Errorf("Expected first bucket minute 0, got %d", buckets[0].Minute)
	}
	if buckets[1].Minute != 1 {
		t.Errorf("Expected second bucket minute 1, got %d", buckets[1].Minute)
	}
}

func TestNormalizeEndDefaulting(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantEnd int64
	}{
		{
			name:    "null end",
			raw:     `[{"FinalSentence": "Hi.", "StartMs": 5000, "EndMs": null, "SpeakerId": "Speaker 1"}]`,
			wantEnd: 8000,
		},
		{
			name:    "missing end",
			raw:     `[{"FinalSentence": "Hi.", "StartMs": 5000, "SpeakerId": "Speaker 1"}]`,
			wantEnd: 8000,
		},
		{
			name:    "end before start",
			raw:     `[{"FinalSentence": "Hi.", "StartMs": 5000, "EndMs": 4000, "SpeakerId": "Speaker 1"}]`,
			wantEnd: 8000,
		},
		{
			name:    "non-numeric end string",
			raw:     `[{"FinalSentence": "Hi.", "StartMs": 5000, "EndMs": "NaN", "SpeakerId": "Speaker 1"}]`,
			wantEnd: 8000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buckets, err := Normalize(tt.raw)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			got := buckets[0].Segments[0].EndMs
			if got != tt.wantEnd {
				t.Errorf("EndMs = %d, want %d", got, tt.wantEnd)
			}
		})
	}
}

func TestNormalizeStringOffsets(t *testing.T) {
	raw := `[{"FinalSentence": "Hi.", "StartMs": "1500", "EndMs": "2500", "SpeakerId": "Speaker 1"}]`

	buckets, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	seg := buckets[0].Segments[0]
	if seg.StartMs != 1500 || seg.EndMs != 2500 {
		t.Errorf("Offsets mismatch: start=%d end=%d", seg.StartMs, seg.EndMs)
	}
}

func TestNormalizeNumericSpeaker(t *testing.T) {
	raw := `[
		{"FinalSentence": "First voice.", "StartMs": 0, "EndMs": 1000, "SpeakerId": 0},
		{"FinalSentence": "Second voice.", "StartMs": 1000, "EndMs": 2000, "SpeakerId": 1}
	]`

	buckets, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	segs := buckets[0].Segments
	if segs[0].SpeakerID != "Speaker 1" {
		t.Errorf("Expected Speaker 1, got %s", segs[0].SpeakerID)
	}
	if segs[1].SpeakerID != "Speaker 2" {
		t.Errorf("Expected Speaker 2, got %s", segs[1].SpeakerID)
	}
}

func TestNormalizePlainText(t *testing.T) {
	buckets, err := Normalize("Just a plain transcript with no structure.")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if len(buckets) != 1 || len(buckets[0].Segments) != 1 {
		t.Fatalf("Expected one synthetic segment, got %+v", buckets)
	}

	seg := buckets[0].Segments[0]
	if seg.StartMs != 0 || seg.EndMs != 0 {
		t.Errorf("Synthetic segment should span 0-0ms, got %d-%d", seg.StartMs, seg.EndMs)
	}
	if seg.SpeakerID != "Speaker 1" {
		t.Errorf("Expected Speaker 1, got %s", seg.SpeakerID)
	}
	if seg.FinalSentence != "Just a plain transcript with no structure." {
		t.Errorf("Sentence mismatch: %s", seg.FinalSentence)
	}
}

func TestNormalizeRejectsNonArrayJSON(t *testing.T) {
	for _, raw := range []string{`{"FinalSentence": "Hi."}`, `42`, `"quoted string"`} {
		if _, err := Normalize(raw); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidFormat", raw, err)
		}
	}
}

func TestNormalizeRejectsMissingSentence(t *testing.T) {
	raw := `[
		{"FinalSentence": "Good segment.", "StartMs": 0, "EndMs": 1000, "SpeakerId": "Speaker 1"},
		{"StartMs": 1000, "EndMs": 2000, "SpeakerId": "Speaker 1"}
	]`

	buckets, err := Normalize(raw)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Expected ErrInvalidFormat, got %v", err)
	}
	if buckets != nil {
		t.Errorf("Expected no partial result, got %+v", buckets)
	}
}

func TestNormalizeRejectsMissingStart(t *testing.T) {
	raw := `[{"FinalSentence": "Hi.", "EndMs": 2000, "SpeakerId": "Speaker 1"}]`

	if _, err := Normalize(raw); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("Expected ErrInvalidFormat, got %v", err)
	}
}

func TestNormalizeGroupedPassthrough(t *testing.T) {
	raw := `[
		{"minute": 0, "segments": [
			{"FinalSentence": "One.", "StartMs": 0, "EndMs": 1000, "SpeakerId": "Speaker 1"},
			{"FinalSentence": "Two.", "StartMs": 59000, "EndMs": null, "SpeakerId": "Speaker 1"}
		]},
		{"minute": 5, "segments": [
			{"FinalSentence": "Three.", "StartMs": 300000, "EndMs": 301000, "SpeakerId": "Speaker 2"}
		]}
	]`

	buckets, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	// Bucket boundaries preserved verbatim, no re-bucketing.
	if len(buckets) != 2 {
		t.Fatalf("Expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Minute != 0 || buckets[1].Minute != 5 {
		t.Errorf("Bucket minutes mismatch: %d, %d", buckets[0].Minute, buckets[1].Minute)
	}

	// Inner segments still re-coerced.
	if buckets[0].Segments[1].EndMs != 62000 {
		t.Errorf("Expected defaulted EndMs 62000, got %d", buckets[0].Segments[1].EndMs)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := `[
		{"FinalSentence": "Alpha.", "StartMs": 100, "EndMs": null, "SpeakerId": 0},
		{"FinalSentence": "Beta.", "StartMs": 61000, "EndMs": "65000", "SpeakerId": "Speaker 2"}
	]`

	first, err := Normalize(raw)
	if err != nil {
		t.Fatalf("first Normalize() error = %v", err)
	}

	encoded, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	second, err := Normalize(string(encoded))
	if err != nil {
		t.Fatalf("second Normalize() error = %v", err)
	}

	reencoded, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if string(encoded) != string(reencoded) {
		t.Errorf("Normalization not idempotent:\nfirst:  %s\nsecond: %s", encoded, reencoded)
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	sentences := []string{"One.", "Two.", "Three.", "Four.", "Five."}
	var parts []string
	for i, s := range sentences {
		parts = append(parts, `{"FinalSentence": "`+s+`", "StartMs": `+jsonInt(int64(i)*45000)+`, "EndMs": null, "SpeakerId": "Speaker 1"}`)
	}
	raw := "[" + strings.Join(parts, ",") + "]"

	buckets, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	flat := Flatten(buckets)
	if len(flat) != len(sentences) {
		t.Fatalf("Expected %d segments, got %d", len(sentences), len(flat))
	}
	for i, seg := range flat {
		if seg.FinalSentence != sentences[i] {
			t.Errorf("Segment %d order mismatch: got %s, want %s", i, seg.FinalSentence, sentences[i])
		}
	}

	text := PlainText(buckets)
	if text != strings.Join(sentences, " ") {
		t.Errorf("PlainText mismatch: %s", text)
	}
}

func TestNormalizeEmptyArray(t *testing.T) {
	buckets, err := Normalize(`[]`)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(buckets) != 0 {
		t.Errorf("Expected no buckets, got %d", len(buckets))
	}
}

func TestNormalizeTranslatedSentence(t *testing.T) {
	raw := `[{"FinalSentence": "Hello.", "TranslatedSentence": "你好。", "StartMs": 0, "EndMs": 900, "SpeakerId": "Speaker 1"}]`

	buckets, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if buckets[0].Segments[0].Translated != "你好。" {
		t.Errorf("Translated mismatch: %s", buckets[0].Segments[0].Translated)
	}
}

func jsonInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
