package dashboard

import "encoding/json"

// Event is one trade-lifecycle fact emitted by the trading engine. Events are
// immutable once fetched; the only state transition is the upstream
// pending -> posted flip performed by MarkEventsPosted.
type Event struct {
	ID        int64          `json:"id"`
	EventType string         `json:"event_type"`
	Symbol    string         `json:"symbol"`
	CreatedAt string         `json:"created_at"`
	Metadata  map[string]any `json:"-"`
	// MetaRaw keeps the original encoded form when metadata arrived as a
	// string that could not be decoded into a map.
	MetaRaw string `json:"-"`
}

// UnmarshalJSON decodes an event with a best-effort metadata decode: the
// engine sometimes double-encodes metadata as a JSON string. A metadata
// payload that cannot be decoded never fails the event, it stays reachable
// through MetaRaw.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        int64           `json:"id"`
		EventType string          `json:"event_type"`
		Symbol    string          `json:"symbol"`
		CreatedAt string          `json:"created_at"`
		Metadata  json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	e.ID = wire.ID
	e.EventType = wire.EventType
	e.Symbol = wire.Symbol
	e.CreatedAt = wire.CreatedAt
	e.Metadata = nil
	e.MetaRaw = ""
	if len(wire.Metadata) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(wire.Metadata, &m); err == nil {
		e.Metadata = m
		return nil
	}
	var s string
	if err := json.Unmarshal(wire.Metadata, &s); err == nil {
		e.MetaRaw = s
		var inner map[string]any
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			e.Metadata = inner
		}
		return nil
	}
	e.MetaRaw = string(wire.Metadata)
	return nil
}

// MetadataJSON renders the metadata as compact JSON for prompts and generic
// templates. Falls back to the raw encoded form, then to "{}".
func (e Event) MetadataJSON() string {
	if e.Metadata != nil {
		if buf, err := json.Marshal(e.Metadata); err == nil {
			return string(buf)
		}
	}
	if e.MetaRaw != "" {
		return e.MetaRaw
	}
	return "{}"
}
