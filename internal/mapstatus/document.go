package mapstatus

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTheme is used when the stored document carries no theme.
const DefaultTheme = "auto"

// Document is the map status document stored in the remote repository.
//
// DisableUntil holds the raw ISO-8601 string from the document ("" when the
// stored value is null or absent); it is parsed lazily by EffectiveAvailability
// so that a round trip never rewrites the stored representation.
//
// Unknown fields are retained and written back unchanged.
type Document struct {
	Enabled      bool
	Message      string
	Theme        string
	DisableUntil string

	extra map[string]json.RawMessage
}

// UnmarshalJSON decodes the document, type-checking the four known fields and
// keeping everything else in an extras map for passthrough on the next write.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &InvalidFormatError{Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}

	doc := Document{Theme: DefaultTheme}

	if v, ok := raw["enabled"]; ok {
		if err := json.Unmarshal(v, &doc.Enabled); err != nil {
			return &InvalidFormatError{Reason: "field enabled is not a boolean"}
		}
		delete(raw, "enabled")
	}
	if v, ok := raw["message"]; ok {
		if err := json.Unmarshal(v, &doc.Message); err != nil {
			return &InvalidFormatError{Reason: "field message is not a string"}
		}
		delete(raw, "message")
	}
	if v, ok := raw["theme"]; ok {
		if err := json.Unmarshal(v, &doc.Theme); err != nil {
			return &InvalidFormatError{Reason: "field theme is not a string"}
		}
		delete(raw, "theme")
	}
	if v, ok := raw["disableUntil"]; ok {
		if string(v) != "null" {
			if err := json.Unmarshal(v, &doc.DisableUntil); err != nil {
				return &InvalidFormatError{Reason: "field disableUntil is not a string or null"}
			}
		}
		delete(raw, "disableUntil")
	}

	if len(raw) > 0 {
		doc.extra = raw
	}

	*d = doc
	return nil
}

// MarshalJSON encodes the document, re-emitting any unknown fields that were
// present when it was read. An empty DisableUntil is written as null.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.extra)+4)
	for k, v := range d.extra {
		out[k] = v
	}

	var err error
	if out["enabled"], err = json.Marshal(d.Enabled); err != nil {
		return nil, err
	}
	if out["message"], err = json.Marshal(d.Message); err != nil {
		return nil, err
	}
	if out["theme"], err = json.Marshal(d.Theme); err != nil {
		return nil, err
	}
	if d.DisableUntil == "" {
		out["disableUntil"] = json.RawMessage("null")
	} else if out["disableUntil"], err = json.Marshal(d.DisableUntil); err != nil {
		return nil, err
	}

	return json.Marshal(out)
}

// EffectiveAvailability reports whether the map is available at the given
// moment. The map counts as unavailable when the enabled flag is off, or when
// disableUntil holds a valid timestamp strictly in the future. An unparseable
// disableUntil does not disable the map.
//
// Every status read in the bot goes through this one rule.
func EffectiveAvailability(doc Document, now time.Time) bool {
	if !doc.Enabled {
		return false
	}
	if doc.DisableUntil == "" {
		return true
	}
	until, err := time.Parse(time.RFC3339, doc.DisableUntil)
	if err != nil {
		return true
	}
	return !until.After(now)
}
