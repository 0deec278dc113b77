package domain

// Reserved record fields.
const (
	FieldType     = "type"
	FieldChildren = "children"
)

// Record is the serialized form of one node: its type tag, its variant
// fields and, for elements, its children in order.
type Record map[string]any

// Type returns the type tag of the record, or "" when it is missing or not a string.
func (r Record) Type() string {
	t, _ := r[FieldType].(string)
	return t
}

// FieldCodec is implemented by node types that encode their own variant
// fields. The registry uses it when a type is registered without a codec.
type FieldCodec interface {
	EncodeFields(rec Record) error
	DecodeFields(rec Record) error
}

// CloneValue deep-copies the maps and slices of a decoded payload value.
// Scalars are returned as they are.
func CloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return ClonePayload(v)
	case Record:
		return Record(ClonePayload(v))
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = CloneValue(e)
		}
		return out
	case []map[string]any:
		if v == nil {
			return v
		}
		out := make([]map[string]any, len(v))
		for i, e := range v {
			out[i] = ClonePayload(e)
		}
		return out
	}
	return v
}

// ClonePayload deep-copies m. A nil map stays nil.
func ClonePayload(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}
