package segments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when a segment payload fails validation.
// Validation is all-or-nothing: a single bad segment rejects the whole
// input rather than producing a partial bucket list, so playback-time
// alignment is never silently corrupted downstream.
var ErrInvalidFormat = errors.New("invalid segment format")

// DefaultSpanMs is the synthetic duration assigned to a segment whose
// end offset is missing, null, or not after its start offset.
const DefaultSpanMs = 3000

// bucketWindowMs is the width of one minute bucket.
const bucketWindowMs = 60000

// Segment is a single normalized utterance.
type Segment struct {
	StartMs       int64  `json:"StartMs"`
	EndMs         int64  `json:"EndMs"`
	FinalSentence string `json:"FinalSentence"`
	SpeakerID     string `json:"SpeakerId"`
	Translated    string `json:"TranslatedSentence,omitempty"`
	FormattedTime string `json:"FormattedTime"`
}

// MinuteBucket groups segments whose start offsets fall in the same
// 60-second window, used for display pagination.
type MinuteBucket struct {
	Minute   int       `json:"minute"`
	Segments []Segment `json:"segments"`
}

// wireSegment is the duck-typed segment shape as persisted: numbers may
// arrive as JSON numbers or strings, the end offset may be null, and the
// speaker label may be a string or a number. The ambiguity is resolved
// here, once, and never carried deeper into the pipeline.
type wireSegment struct {
	FinalSentence *string         `json:"FinalSentence"`
	StartMs       json.RawMessage `json:"StartMs"`
	EndMs         json.RawMessage `json:"EndMs"`
	SpeakerID     json.RawMessage `json:"SpeakerId"`
	Translated    *string         `json:"TranslatedSentence"`
}

// wireBucket is the pre-grouped wire shape.
type wireBucket struct {
	Minute   *int          `json:"minute"`
	Segments []wireSegment `json:"segments"`
}

// Normalize converts a raw persisted transcript payload into canonical
// minute buckets. The input is either a JSON array of flat segments, a
// JSON array already grouped as {minute, segments[]}, or a non-JSON
// string, which is wrapped as a single synthetic segment spanning 0-0ms.
// The result is deterministic and idempotent: re-normalizing an already
// normalized payload yields the same buckets.
func Normalize(raw string) ([]MinuteBucket, error) {
	trimmed := strings.TrimSpace(raw)

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &elements); err != nil {
		if json.Valid([]byte(trimmed)) {
			// Parseable JSON that is not an array is a malformed payload,
			// not a plain-text transcript.
			return nil, fmt.Errorf("%w: payload is valid JSON but not an array", ErrInvalidFormat)
		}
		return []MinuteBucket{syntheticBucket(raw)}, nil
	}

	if len(elements) == 0 {
		return []MinuteBucket{}, nil
	}

	if isGrouped(elements[0]) {
		return normalizeGrouped(trimmed)
	}
	return normalizeFlat(elements)
}

// Flatten returns the segments of all buckets as one sequence, in bucket
// and start-offset order. Concatenating the sentences reconstructs the
// full transcript text.
func Flatten(buckets []MinuteBucket) []Segment {
	var out []Segment
	for _, b := range buckets {
		out = append(out, b.Segments...)
	}
	return out
}

// PlainText joins all sentences into a single space-separated string.
func PlainText(buckets []MinuteBucket) string {
	var builder strings.Builder
	for _, seg := range Flatten(buckets) {
		if builder.Len() > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(seg.FinalSentence)
	}
	return builder.String()
}

// syntheticBucket wraps a non-JSON transcript string as one segment.
func syntheticBucket(raw string) MinuteBucket {
	return MinuteBucket{
		Minute: 0,
		Segments: []Segment{{
			StartMs:       0,
			EndMs:         0,
			FinalSentence: raw,
			SpeakerID:     "Speaker 1",
			FormattedTime: formatOffset(0),
		}},
	}
}

// isGrouped reports whether the first array element carries the
// pre-grouped {minute, segments} shape.
func isGrouped(first json.RawMessage) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(first, &probe); err != nil {
		return false
	}
	_, hasMinute := probe["minute"]
	_, hasSegments := probe["segments"]
	return hasMinute && hasSegments
}

// normalizeFlat folds time-ordered flat segments into minute buckets. A
// new bucket opens whenever the computed minute changes from the running
// bucket; buckets are emitted in first-seen order. Out-of-order input is
// a caller contract violation and is not validated here.
func normalizeFlat(elements []json.RawMessage) ([]MinuteBucket, error) {
	buckets := []MinuteBucket{}
	currentMinute := -1

	for i, element := range elements {
		var ws wireSegment
		if err := json.Unmarshal(element, &ws); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrInvalidFormat, i, err)
		}

		seg, err := coerceSegment(ws, i)
		if err != nil {
			return nil, err
		}

		minute := int(seg.StartMs / bucketWindowMs)
		if len(buckets) == 0 || minute != currentMinute {
			buckets = append(buckets, MinuteBucket{Minute: minute})
			currentMinute = minute
		}
		last := len(buckets) - 1
		buckets[last].Segments = append(buckets[last].Segments, seg)
	}

	return buckets, nil
}

// normalizeGrouped re-validates and re-coerces every inner segment but
// preserves the existing bucket boundaries verbatim.
func normalizeGrouped(raw string) ([]MinuteBucket, error) {
	var wire []wireBucket
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("%w: grouped payload: %v", ErrInvalidFormat, err)
	}

	buckets := make([]MinuteBucket, 0, len(wire))
	for bi, wb := range wire {
		if wb.Minute == nil {
			return nil, fmt.Errorf("%w: bucket %d missing minute", ErrInvalidFormat, bi)
		}
		bucket := MinuteBucket{Minute: *wb.Minute}
		for si, ws := range wb.Segments {
			seg, err := coerceSegment(ws, si)
			if err != nil {
				return nil, fmt.Errorf("bucket %d: %w", bi, err)
			}
			bucket.Segments = append(bucket.Segments, seg)
		}
		buckets = append(buckets, bucket)
	}

	return buckets, nil
}

// coerceSegment converts one wire segment into the canonical struct,
// failing the whole input when the sentence or start offset is unusable.
func coerceSegment(ws wireSegment, index int) (Segment, error) {
	if ws.FinalSentence == nil {
		return Segment{}, fmt.Errorf("%w: segment %d lacks a sentence", ErrInvalidFormat, index)
	}

	start, ok := coerceMillis(ws.StartMs)
	if !ok || start < 0 {
		return Segment{}, fmt.Errorf("%w: segment %d has no coercible start offset", ErrInvalidFormat, index)
	}

	end, ok := coerceMillis(ws.EndMs)
	if !ok || end <= start {
		end = start + DefaultSpanMs
	}

	seg := Segment{
		StartMs:       start,
		EndMs:         end,
		FinalSentence: *ws.FinalSentence,
		SpeakerID:     coerceSpeaker(ws.SpeakerID),
		FormattedTime: formatOffset(start),
	}
	if ws.Translated != nil {
		seg.Translated = *ws.Translated
	}
	return seg, nil
}

// coerceMillis accepts a JSON number or a numeric string and returns the
// offset in milliseconds. Missing, null, and non-numeric values report
// not-ok so the caller can apply its own defaulting policy.
func coerceMillis(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return int64(num), true
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, false
	}
	return int64(parsed), true
}

// coerceSpeaker renders the speaker label as a string. Bare numeric
// labels come from diarization output indexed from zero, so they render
// 1-indexed as "Speaker N". Missing labels default to the first speaker.
func coerceSpeaker(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "Speaker 1"
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.TrimSpace(str) == "" {
			return "Speaker 1"
		}
		return str
	}

	var num int64
	if err := json.Unmarshal(raw, &num); err == nil {
		return fmt.Sprintf("Speaker %d", num+1)
	}

	return "Speaker 1"
}

// formatOffset renders a millisecond offset as HH:MM:SS.
func formatOffset(ms int64) string {
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
