package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// DomainManifest prefixes manifest hashes. The version suffix allows changing
// the canonical form later without colliding with old hashes.
const DomainManifest = "hlsgen/manifest/v1"

// Hash returns the SHA-256 content hash of a resolved document:
// SHA256(domain + 0x00 + canonical JSON). Two manifests that resolve to the
// same document hash the same regardless of source format or spelling.
func Hash(doc *Document) (string, error) {
	canonical, err := MarshalCanonical(doc.canonical())
	if err != nil {
		return "", fmt.Errorf("hashing manifest %q: %w", doc.Name, err)
	}
	return hashWithDomain(DomainManifest, canonical), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// canonical converts the document to plain maps and slices. Empty optional
// fields are left out so they hash like absent ones.
func (d *Document) canonical() map[string]any {
	obj := map[string]any{
		"name":    d.Name,
		"backend": d.Backend,
		"io_type": d.IOType,
	}
	if d.FIFO != "" {
		obj["fifo"] = d.FIFO
	}

	tensors := make([]any, len(d.Tensors))
	for i, t := range d.Tensors {
		to := map[string]any{
			"name":      t.Name,
			"type":      t.Type,
			"precision": t.Precision,
			"pack":      t.Pack,
		}
		if len(t.Shape) > 0 {
			shape := make([]any, len(t.Shape))
			for j, dim := range t.Shape {
				shape[j] = map[string]any{"name": dim.Name, "size": dim.Size}
			}
			to["shape"] = shape
		}
		if t.Pragma != nil {
			to["pragma"] = *t.Pragma
		}
		if t.Struct != "" {
			to["struct"] = t.Struct
		}
		if t.Input != "" {
			to["input"] = t.Input
		}
		tensors[i] = to
	}
	obj["tensors"] = tensors

	if len(d.Weights) > 0 {
		weights := make([]any, len(d.Weights))
		for i, w := range d.Weights {
			wo := map[string]any{
				"name":      w.Name,
				"type":      w.Type,
				"precision": w.Precision,
				"encoding":  w.Encoding,
				"length":    w.Length,
				"storage":   w.Storage,
			}
			if w.Index != "" {
				wo["index_precision"] = w.Index
			}
			if w.Sign != "" {
				wo["sign_precision"] = w.Sign
			}
			weights[i] = wo
		}
		obj["weights"] = weights
	}
	return obj
}

// MarshalCanonical produces RFC 8785 canonical JSON for hashing:
// object keys sorted by UTF-16 code units, strings NFC-normalized with
// minimal escaping, no HTML escaping. Supported values are strings, ints,
// bools, []any and map[string]any. Floats and nulls are rejected.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return compareUTF16(keys[i], keys[j]) < 0 })

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// writeCanonicalString escapes only the quote, the backslash and control
// characters, as RFC 8785 requires.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// compareUTF16 orders strings by UTF-16 code units, which differs from Go's
// byte order for characters outside the BMP.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}
