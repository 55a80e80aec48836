// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/replayd/internal/event"
	"github.com/ManuGH/replayd/internal/macro"
)

const schemaVersion = 1

// document is the on-disk macro schema. Offsets and duration are stored in
// nanoseconds so the round-trip is exact.
type document struct {
	Schema    int           `json:"schema"`
	Name      string        `json:"name"`
	CreatedAt string        `json:"created_at"`
	Duration  int64         `json:"duration_ns"`
	Events    []eventRecord `json:"events"`
}

type eventRecord struct {
	Kind   string `json:"kind"`
	Code   uint16 `json:"code,omitempty"`
	DX     int32  `json:"dx,omitempty"`
	DY     int32  `json:"dy,omitempty"`
	Wheel  int32  `json:"wheel,omitempty"`
	Offset int64  `json:"offset_ns"`
}

func decode(data []byte) (macro.Macro, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return macro.Macro{}, fmt.Errorf("%w: %v", macro.ErrCorrupt, err)
	}
	if doc.Schema != schemaVersion {
		return macro.Macro{}, fmt.Errorf("%w: unsupported schema %d", macro.ErrCorrupt, doc.Schema)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, doc.CreatedAt)
	if err != nil {
		return macro.Macro{}, fmt.Errorf("%w: bad created_at: %v", macro.ErrCorrupt, err)
	}
	events := make([]event.Event, 0, len(doc.Events))
	for i, rec := range doc.Events {
		kind, err := event.KindFromString(rec.Kind)
		if err != nil {
			return macro.Macro{}, fmt.Errorf("%w: event %d: %v", macro.ErrCorrupt, i, err)
		}
		events = append(events, event.Event{
			Kind:   kind,
			Code:   rec.Code,
			DX:     rec.DX,
			DY:     rec.DY,
			Wheel:  rec.Wheel,
			Offset: time.Duration(rec.Offset),
		})
	}
	return macro.Macro{
		Name:      doc.Name,
		CreatedAt: createdAt,
		Duration:  time.Duration(doc.Duration),
		Events:    events,
	}, nil
}
