package jdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"
)

// Document is the whole persisted state of a table: key to record.
type Document map[string]Record

// Keys returns the document's keys in document order.
func (doc Document) Keys() []string {
	return sortedKeys(doc)
}

// Encoding is the serialization format of stored documents.
type Encoding int

const (
	JSON Encoding = iota
	MsgPack
	BSON
)

var encodings = []Encoding{JSON, MsgPack, BSON}

func (enc Encoding) String() string {
	switch enc {
	case JSON:
		return "json"
	case MsgPack:
		return "msgpack"
	case BSON:
		return "bson"
	default:
		return fmt.Sprintf("Encoding(%d)", int(enc))
	}
}

// Ext is the document name suffix, e.g. ".json".
func (enc Encoding) Ext() string {
	return "." + enc.String()
}

// DocumentName is the store name of a table's document.
func (enc Encoding) DocumentName(table string) string {
	return table + enc.Ext()
}

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "msgpack", "messagepack":
		return MsgPack, nil
	case "bson":
		return BSON, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q", s)
	}
}

// EncodingOfName guesses the encoding and table of a document name by its
// extension. Published schemas are not documents.
func EncodingOfName(name string) (Encoding, string, bool) {
	if strings.HasSuffix(name, ".schema.json") {
		return 0, "", false
	}
	for _, enc := range encodings {
		if base, ok := strings.CutSuffix(name, enc.Ext()); ok && base != "" {
			return enc, base, true
		}
	}
	return 0, "", false
}

// EncodeDocument serializes doc with keys sorted at every level.
func (enc Encoding) EncodeDocument(doc Document) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	switch enc {
	case JSON:
		var buf bytes.Buffer
		e := json.NewEncoder(&buf)
		e.SetEscapeHTML(false)
		e.SetIndent("", "  ")
		if err := e.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode JSON: %w", err)
		}
		return buf.Bytes(), nil
	case MsgPack:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		e.Reset(&buf)
		e.SetSortMapKeys(true)
		err := e.Encode(plainDocument(doc))
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode MsgPack: %w", err)
		}
		return buf.Bytes(), nil
	case BSON:
		d := make(bson.D, 0, len(doc))
		for _, k := range sortedKeys(doc) {
			d = append(d, bson.E{Key: k, Value: toBSON(map[string]any(doc[k]))})
		}
		raw, err := bson.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("failed to encode BSON: %w", err)
		}
		return raw, nil
	default:
		panic("unsupported encoding")
	}
}

// DecodeDocument parses a serialized document; values come back in
// canonical form. Records that are not objects are left out of the result
// and reported with a *MalformedRecordsError alongside the rest.
func (enc Encoding) DecodeDocument(raw []byte) (Document, error) {
	var top map[string]any
	switch enc {
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&top); err != nil {
			return nil, err
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			return nil, errors.New("unexpected data after top-level value")
		}
	case MsgPack:
		var r bytes.Reader
		r.Reset(raw)
		dec := msgpack.GetDecoder()
		dec.Reset(&r)
		err := dec.Decode(&top)
		rem := r.Len()
		msgpack.PutDecoder(dec)
		if err != nil {
			return nil, err
		}
		if rem != 0 {
			return nil, errors.New("unexpected data after top-level value")
		}
	case BSON:
		var m bson.M
		if err := bson.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		top = fromBSON(m).(map[string]any)
	default:
		panic("unsupported encoding")
	}
	if top == nil {
		return nil, errors.New("document is not an object")
	}

	doc := make(Document, len(top))
	var malformed map[string]any
	for k, v := range top {
		c, err := canonical(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		m, ok := c.(map[string]any)
		if !ok {
			if malformed == nil {
				malformed = make(map[string]any)
			}
			malformed[k] = c
			continue
		}
		doc[k] = m
	}
	if malformed != nil {
		return doc, &MalformedRecordsError{Records: malformed}
	}
	return doc, nil
}

func plainDocument(doc Document) map[string]any {
	m := make(map[string]any, len(doc))
	for k, rec := range doc {
		m[k] = map[string]any(rec)
	}
	return m
}

// toBSON converts maps into ordered documents so that output is stable.
func toBSON(v any) any {
	switch x := v.(type) {
	case map[string]any:
		d := make(bson.D, 0, len(x))
		for _, k := range sortedKeys(x) {
			d = append(d, bson.E{Key: k, Value: toBSON(x[k])})
		}
		return d
	case []any:
		a := make(bson.A, len(x))
		for i, e := range x {
			a[i] = toBSON(e)
		}
		return a
	default:
		return v
	}
}

func fromBSON(v any) any {
	switch x := v.(type) {
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = fromBSON(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = fromBSON(e)
		}
		return m
	case bson.A:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = fromBSON(e)
		}
		return a
	case []any:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = fromBSON(e)
		}
		return a
	default:
		return v
	}
}
