package normalize

import (
	"encoding/json"
	"strings"
	"time"
)

// SynthOptions controls per-endpoint log synthesis. Merchant audit trails use
// a 50-character colon cutoff with "CHANGE" written to "action"; disbursement
// processing history uses a 30-character cutoff with "INFO" written to "status".
// These values differ by endpoint for historical reasons and must stay keyed
// per endpoint: unifying them would change displayed output for existing data.
type SynthOptions struct {
	ColonCutoff   int
	DefaultAction string
	ActionKey     string
}

// SyntheticSpacing separates fabricated timestamps of adjacent entries.
const SyntheticSpacing = time.Second

// Synthesize turns a history feed delivered as a mix of JSON-encoded strings,
// structured objects, and plain free text into a uniform sequence of structured
// entries, order-preserving and one output per input.
//
// Entries without a parseable timestamp get a synthetic one: base + i*1s, where
// base is the first real timestamp found scanning from position 0, or now() if
// none exists. Ids are the 1-based position unless the entry carries its own
// numeric id.
func Synthesize(raw []any, opts SynthOptions, now func() time.Time) []map[string]any {
	if opts.ColonCutoff <= 0 {
		opts.ColonCutoff = 50
	}
	if opts.DefaultAction == "" {
		opts.DefaultAction = "CHANGE"
	}
	if opts.ActionKey == "" {
		opts.ActionKey = "action"
	}
	if now == nil {
		now = time.Now
	}

	base := baseTimestamp(raw, now)

	out := make([]map[string]any, 0, len(raw))
	for i, entry := range raw {
		synthetic := base.Add(time.Duration(i) * SyntheticSpacing)
		out = append(out, shapeEntry(entry, i, synthetic, opts))
	}
	return out
}

// baseTimestamp scans entries in order and returns the first parseable
// timestamp, or now() when no entry yields one.
func baseTimestamp(raw []any, now func() time.Time) time.Time {
	for _, entry := range raw {
		obj := decodeEntry(entry)
		if obj == nil {
			continue
		}
		if ts, ok := parseTimestamp(obj["timestamp"]); ok {
			return ts
		}
	}
	return now()
}

func shapeEntry(entry any, position int, synthetic time.Time, opts SynthOptions) map[string]any {
	if obj := decodeEntry(entry); obj != nil {
		return shapeObject(obj, position, synthetic, opts)
	}

	text, ok := toString(entry)
	if !ok {
		text = ""
	}
	return shapeText(text, position, synthetic, opts)
}

// shapeObject preserves all of the object's own fields and fills id, timestamp,
// and the action token where the object omits them.
func shapeObject(obj map[string]any, position int, synthetic time.Time, opts SynthOptions) map[string]any {
	out := make(map[string]any, len(obj)+3)
	for k, v := range obj {
		out[k] = v
	}

	if ts, ok := parseTimestamp(obj["timestamp"]); ok {
		out["timestamp"] = ts.UTC().Format(time.RFC3339)
	} else {
		out["timestamp"] = synthetic.UTC().Format(time.RFC3339)
	}

	if id, ok := numericID(obj["id"]); ok {
		out["id"] = id
	} else {
		out["id"] = position + 1
	}

	if action, ok := toString(obj[opts.ActionKey]); !ok || strings.TrimSpace(action) == "" {
		out[opts.ActionKey] = opts.DefaultAction
	}

	return out
}

// shapeText splits a free-text entry at the first colon within the cutoff:
// the text before becomes the upper-cased action token, the text after the
// message. Without a qualifying colon the whole string is the message and the
// action falls back to the endpoint's default token.
func shapeText(text string, position int, synthetic time.Time, opts SynthOptions) map[string]any {
	action := opts.DefaultAction
	reason := text

	if idx := strings.Index(text, ":"); idx > 0 && idx < opts.ColonCutoff {
		action = strings.ToUpper(strings.TrimSpace(text[:idx]))
		reason = strings.TrimSpace(text[idx+1:])
	}

	return map[string]any{
		"id":          position + 1,
		opts.ActionKey: action,
		"reason":      reason,
		"timestamp":   synthetic.UTC().Format(time.RFC3339),
	}
}

// decodeEntry returns the entry as a structured object: either it already is
// one, or it is a string holding a JSON-encoded object. Anything else is nil.
func decodeEntry(entry any) map[string]any {
	switch v := entry.(type) {
	case map[string]any:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if !strings.HasPrefix(trimmed, "{") {
			return nil
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil
		}
		return obj
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw any) (time.Time, bool) {
	s, ok := toString(raw)
	if !ok {
		return time.Time{}, false
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// numericID accepts a number or a numeric string.
func numericID(raw any) (int, bool) {
	if raw == nil {
		return 0, false
	}
	return toInt(raw)
}
