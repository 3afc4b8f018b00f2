package companion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultNamespace is the attribute namespace written by this service
const DefaultNamespace = "custom"

// Codec translates between a Profile and the flat attribute list stored on a record.
// It is the only place that knows canonical keys, aliases and type coercion.
type Codec struct {
	namespace string
}

// NewCodec creates a codec writing attributes under namespace
func NewCodec(namespace string) *Codec {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Codec{namespace: namespace}
}

// Namespace returns the namespace attributes are written under
func (c *Codec) Namespace() string {
	return c.namespace
}

// Encode emits one attribute per populated canonical field. Fields whose
// encoded value would be empty are omitted.
func (c *Codec) Encode(p Profile) []Attribute {
	attrs := make([]Attribute, 0, len(Fields))
	for _, f := range Fields {
		value := encodeField(&p, f)
		if value == "" || value == EmptyListMarker {
			continue
		}
		attrs = append(attrs, c.attribute(f, value))
	}
	return attrs
}

// EncodeAll emits every canonical field, using the kind's empty encoding
// for unpopulated ones so a batch write deletes them on the backend.
func (c *Codec) EncodeAll(p Profile) []Attribute {
	attrs := make([]Attribute, 0, len(Fields))
	for _, f := range Fields {
		value := encodeField(&p, f)
		if value == "" {
			value = f.Kind.EmptyEncoding()
		}
		attrs = append(attrs, c.attribute(f, value))
	}
	return attrs
}

// EncodeField encodes a single canonical field of p; ok is false for unknown keys
func (c *Codec) EncodeField(p Profile, key string) (Attribute, bool) {
	f, ok := fieldIndex[key]
	if !ok || f.Key != key {
		return Attribute{}, false
	}
	value := encodeField(&p, f)
	if value == "" {
		value = f.Kind.EmptyEncoding()
	}
	return c.attribute(f, value), true
}

func (c *Codec) attribute(f Field, value string) Attribute {
	return Attribute{
		Namespace: c.namespace,
		Key:       f.Key,
		Value:     value,
		Type:      f.Kind.TypeTag(),
	}
}

// Decode builds a Profile from stored attributes. It never fails: values that
// cannot be coerced are kept as plain strings. When a key is stored under
// several namespaces, the codec's own namespace wins over foreign ones.
func (c *Codec) Decode(attrs []Attribute) Profile {
	values := make(map[string]string, len(attrs))
	foreign := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if a.IsAbsent() || strings.TrimSpace(a.Value) == "" {
			continue
		}
		key := stripNamespace(a.Key)
		isForeign := c.isForeign(a)
		if _, seen := values[key]; seen && (isForeign || !foreign[key]) {
			continue
		}
		values[key] = a.Value
		foreign[key] = isForeign
	}

	var p Profile
	for _, f := range Fields {
		raw, ok := resolve(values, f)
		if !ok {
			continue
		}
		decodeField(&p, f, raw)
	}
	return p
}

// StaleAliases returns the stored attributes whose keys are legacy aliases.
// They are superseded by the canonical key once it is written.
func (c *Codec) StaleAliases(attrs []Attribute) []Attribute {
	var stale []Attribute
	for _, a := range attrs {
		if IsLegacyAlias(stripNamespace(a.Key)) {
			stale = append(stale, a)
		}
	}
	return stale
}

// resolve returns the value stored under the canonical key or the first alias present
func resolve(values map[string]string, f Field) (string, bool) {
	if v, ok := values[f.Key]; ok {
		return v, true
	}
	for _, alias := range f.Aliases {
		if v, ok := values[alias]; ok {
			return v, true
		}
	}
	return "", false
}

// isForeign reports whether a names a namespace other than the codec's.
// Attributes without a namespace are treated as the codec's own.
func (c *Codec) isForeign(a Attribute) bool {
	ns := a.Namespace
	if ns == "" {
		if i := strings.LastIndex(a.Key, "."); i >= 0 {
			ns = a.Key[:i]
		}
	}
	return ns != "" && ns != c.namespace
}

func stripNamespace(key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[i+1:]
	}
	return key
}

func encodeField(p *Profile, f Field) string {
	if f.Kind == KindList {
		ptr := p.list(f.Key)
		if ptr == nil {
			return ""
		}
		return EncodeList(*ptr)
	}
	ptr := p.scalar(f.Key)
	if ptr == nil {
		return ""
	}
	value := strings.TrimSpace(*ptr)
	if value == "" {
		return ""
	}
	switch f.Kind {
	case KindBoolean:
		return NormalizeBool(value)
	case KindInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return ""
		}
		return strconv.Itoa(n)
	default:
		return value
	}
}

func decodeField(p *Profile, f Field, raw string) {
	if f.Kind == KindList {
		if ptr := p.list(f.Key); ptr != nil {
			*ptr = ParseList(raw)
		}
		return
	}
	ptr := p.scalar(f.Key)
	if ptr == nil {
		return
	}
	value := strings.TrimSpace(raw)
	if f.Kind == KindBoolean {
		value = NormalizeBool(value)
	}
	*ptr = value
}

// EncodeList serialises entries as a JSON array string, dropping blank entries.
// An empty result is the empty-list marker.
func EncodeList(entries []string) string {
	clean := cleanList(entries)
	if len(clean) == 0 {
		return EmptyListMarker
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return EmptyListMarker
	}
	return string(b)
}

// ParseList decodes a stored list value. JSON arrays are preferred; plain
// text is split on commas. A value that looks like a JSON array but does
// not parse is returned as a single entry.
func ParseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == EmptyListMarker {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return []string{raw}
		}
		entries := make([]string, 0, len(arr))
		for _, v := range arr {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok {
				entries = append(entries, s)
				continue
			}
			entries = append(entries, fmt.Sprint(v))
		}
		return cleanList(entries)
	}
	parts := cleanList(strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，'
	}))
	if len(parts) == 0 {
		return []string{raw}
	}
	return parts
}

// SplitListInput splits a comma-entered form value into list entries
func SplitListInput(s string) []string {
	return cleanList(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '，' || r == '\n'
	}))
}

func cleanList(entries []string) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var truthy = map[string]struct{}{
	"yes":  {},
	"true": {},
	"是":    {},
}

// NormalizeBool maps yes / true / 是 (any case) to "true" and everything else to "false"
func NormalizeBool(s string) string {
	if _, ok := truthy[strings.ToLower(strings.TrimSpace(s))]; ok {
		return "true"
	}
	return "false"
}
