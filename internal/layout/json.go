package layout

import (
	"bytes"
	"encoding/json"
	"sort"
)

// knownFields lists every struct tag name declared on Layout, in the fixed
// order spec §4.3 requires for canonical serialization ("keys sorted in
// fixed order defined by the model").
var knownFields = []string{
	"keyboard", "title", "creator", "notes", "tags", "uuid", "parent_uuid",
	"date", "locale", "firmware_api_version",
	"version", "base_version", "base_layout",
	"variables", "config_parameters",
	"layer_names", "layers",
	"macros", "hold_taps", "combos", "input_listeners",
	"custom_defined_behaviors", "custom_devicetree",
	"last_firmware_build",
}

type layoutAlias Layout

// UnmarshalJSON decodes a layout document, capturing any field not declared
// on Layout into Extra so it survives a later MarshalJSON.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var alias layoutAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*l = Layout(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := make(map[string]bool, len(knownFields))
	for _, k := range knownFields {
		known[k] = true
	}
	extra := make(map[string]json.RawMessage)
	for k, v := range raw {
		if !known[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		l.Extra = extra
	}
	return nil
}

// MarshalJSON emits the layout with known fields in the fixed order defined
// by knownFields, followed by any preserved Extra fields in sorted key
// order, so two equal layouts always produce byte-identical JSON (spec §8
// property 1, round-trip).
func (l Layout) MarshalJSON() ([]byte, error) {
	alias := layoutAlias(l)
	data, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k, v := range l.Extra {
		m[k] = v
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(k string) error {
		v, ok := m[k]
		if !ok {
			return nil
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
		delete(m, k)
		return nil
	}
	for _, k := range knownFields {
		if err := write(k); err != nil {
			return nil, err
		}
	}
	var rest []string
	for k := range m {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		if err := write(k); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Canonical returns the canonical serialization used by the round-trip
// invariant: 2-space indented JSON, fixed field order, UTF-8, trailing
// newline.
func (l *Layout) Canonical() ([]byte, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Equal reports whether two layouts serialize identically under Canonical.
func Equal(a, b *Layout) bool {
	ca, errA := a.Canonical()
	cb, errB := b.Canonical()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// Parse decodes a layout document from JSON bytes.
func Parse(data []byte) (*Layout, error) {
	l := &Layout{}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, err
	}
	return l, nil
}
