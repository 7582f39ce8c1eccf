package attachment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Kind tells which variant an Attachment holds.
type Kind int

const (
	KindNone   Kind = iota // absent or null
	KindURL                // bare URL string (also inline data: URIs)
	KindStored             // structured {url, key, type, name, ...} record
	KindRaw                // any other JSON scalar, kept verbatim
)

// Reserved object fields mapped onto Attachment fields.
const (
	fieldURL  = "url"
	fieldKey  = "key"
	fieldType = "type"
	fieldName = "name"
)

// Attachment references a binary object (photo, signature, document) either
// as a bare URL or as a structured record carrying the store key.
type Attachment struct {
	Kind Kind
	URL  string
	Key  string
	Type string
	Name string
	// Extra holds unknown object fields (size, storage, savedAt, ...) of a
	// stored record so they survive a round trip.
	Extra map[string]json.RawMessage
	// Raw is the JSON text of a KindRaw value.
	Raw json.RawMessage
}

// List is an ordered sequence of attachments. It always encodes as an array.
type List []Attachment

// FromURL wraps a bare URL string.
func FromURL(u string) Attachment {
	return Attachment{Kind: KindURL, URL: u}
}

// NewStored builds the record returned by a server-side upload.
func NewStored(u, key, typ, name string) Attachment {
	return Attachment{Kind: KindStored, URL: u, Key: key, Type: typ, Name: name}
}

// IsZero reports whether the attachment is absent.
func (a Attachment) IsZero() bool {
	return a.Kind == KindNone
}

// Href returns the URL of a URL or stored attachment.
func (a Attachment) Href() string {
	switch a.Kind {
	case KindURL, KindStored:
		return a.URL
	}
	return ""
}

// IsDataURI reports whether a bare URL attachment carries inline data.
func (a Attachment) IsDataURI() bool {
	return a.Kind == KindURL && strings.HasPrefix(a.URL, "data:")
}

// MarshalJSON encodes the attachment in the shape it was received in.
func (a Attachment) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindURL:
		return json.Marshal(a.URL)
	case KindStored:
		return a.marshalObject()
	case KindRaw:
		if len(a.Raw) == 0 {
			return []byte("null"), nil
		}
		return a.Raw, nil
	default:
		return []byte("null"), nil
	}
}

func (a Attachment) marshalObject() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(k string, v []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
	}

	reserved := []struct {
		name      string
		value     string
		omitEmpty bool
	}{
		{fieldURL, a.URL, false},
		{fieldKey, a.Key, true},
		{fieldType, a.Type, true},
		{fieldName, a.Name, true},
	}
	for _, f := range reserved {
		if raw, ok := a.Extra[f.name]; ok {
			write(f.name, raw)
			continue
		}
		if f.omitEmpty && f.value == "" {
			continue
		}
		vb, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		write(f.name, vb)
	}

	keys := make([]string, 0, len(a.Extra))
	for k := range a.Extra {
		switch k {
		case fieldURL, fieldKey, fieldType, fieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, a.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a string, an object, null or any other JSON value.
func (a *Attachment) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Attachment{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("attachment: %w", err)
		}
		*a = FromURL(s)
		return nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return fmt.Errorf("attachment: %w", err)
		}
		out := Attachment{Kind: KindStored}
		for k, v := range fields {
			switch k {
			case fieldURL, fieldKey, fieldType, fieldName:
				var s string
				if err := json.Unmarshal(v, &s); err == nil {
					out.setReserved(k, s)
					continue
				}
			}
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[k] = compact(v)
		}
		*a = out
		return nil
	default:
		if !json.Valid(trimmed) {
			return fmt.Errorf("attachment: invalid JSON value")
		}
		*a = Attachment{Kind: KindRaw, Raw: compact(trimmed)}
		return nil
	}
}

func (a *Attachment) setReserved(field, value string) {
	switch field {
	case fieldURL:
		a.URL = value
	case fieldKey:
		a.Key = value
	case fieldType:
		a.Type = value
	case fieldName:
		a.Name = value
	}
}

// MarshalBSONValue stores URLs as strings and records as embedded documents,
// so documents written here read the same as ones written by other clients.
func (a Attachment) MarshalBSONValue() (bsontype.Type, []byte, error) {
	switch a.Kind {
	case KindNone:
		return bson.TypeNull, nil, nil
	case KindURL:
		return bson.MarshalValue(a.URL)
	case KindStored:
		js, err := a.marshalObject()
		if err != nil {
			return 0, nil, err
		}
		var doc bson.D
		if err := bson.UnmarshalExtJSON(js, false, &doc); err != nil {
			return 0, nil, fmt.Errorf("attachment: %w", err)
		}
		return bson.MarshalValue(doc)
	default:
		var wrapper bson.D
		if err := bson.UnmarshalExtJSON(wrapScalar(a.Raw), false, &wrapper); err != nil {
			return 0, nil, fmt.Errorf("attachment: %w", err)
		}
		if len(wrapper) == 0 {
			return bson.TypeNull, nil, nil
		}
		return bson.MarshalValue(wrapper[0].Value)
	}
}

// UnmarshalBSONValue is the inverse of MarshalBSONValue.
func (a *Attachment) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*a = Attachment{}
		return nil
	case bson.TypeString:
		*a = FromURL(rv.StringValue())
		return nil
	case bson.TypeEmbeddedDocument:
		js, err := bson.MarshalExtJSON(rv.Document(), false, false)
		if err != nil {
			return fmt.Errorf("attachment: %w", err)
		}
		return a.UnmarshalJSON(js)
	default:
		js, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: rv}}, false, false)
		if err != nil {
			return fmt.Errorf("attachment: %w", err)
		}
		var wrapper struct {
			V json.RawMessage `json:"v"`
		}
		if err := json.Unmarshal(js, &wrapper); err != nil {
			return fmt.Errorf("attachment: %w", err)
		}
		return a.UnmarshalJSON(wrapper.V)
	}
}

// MarshalJSON encodes a nil list as an empty array.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Attachment(l))
}

func compact(v []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return append(json.RawMessage(nil), v...)
	}
	return buf.Bytes()
}

func wrapScalar(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte(`{}`)
	}
	return []byte(`{"v":` + string(raw) + `}`)
}
