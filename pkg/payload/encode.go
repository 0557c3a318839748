package payload

import (
	"fmt"
	"strconv"
	"strings"
)

// Arg is a single route argument. Insertion order of the surrounding slice
// is meaningful and survives encoding.
type Arg struct {
	Key   string
	Value any
}

// Args is an ordered argument list. A nil slice means the router supplied no
// argument map at all, which encodes differently from a present-but-empty one.
type Args []Arg

// EncodeArgs renders the argument list as a JSON-object-shaped string:
// {"k1":"v1","k2":"v2"}. A nil list yields "", an empty list yields "{}".
//
// Keys and rendered values are escaped so the result parses with any standard
// JSON decoder and round-trips the original (key, rendered value) pairs in
// order. Value rendering never fails: a panicking Stringer degrades to a
// default rendering instead of aborting the event.
func EncodeArgs(args Args) string {
	if args == nil {
		return ""
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		escapeInto(&b, a.Key)
		b.WriteString(`":"`)
		escapeInto(&b, renderValue(a.Value))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// renderValue produces a locale-independent string form of an argument value.
// Scalars use strconv (always invariant); everything else goes through
// safeString so a misbehaving String/Error implementation cannot take the
// event down with it.
func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return safeString(v)
	}
}

// safeString is the recovery boundary around caller-supplied formatting.
func safeString(v any) (out string) {
	defer func() {
		if recover() != nil {
			out = fmt.Sprintf("%T", v)
		}
	}()
	switch x := v.(type) {
	case fmt.Stringer:
		return x.String()
	case error:
		return x.Error()
	default:
		return fmt.Sprint(v)
	}
}

const hexDigits = "0123456789abcdef"

// escapeInto appends s with JSON string escaping applied: quote, backslash,
// and every control code below 0x20. Multi-byte UTF-8 sequences pass through
// untouched (their bytes are all >= 0x80).
func escapeInto(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c == '\b':
			b.WriteString(`\b`)
		case c == '\f':
			b.WriteString(`\f`)
		case c < 0x20:
			b.WriteString(`\u00`)
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xf])
		default:
			b.WriteByte(c)
		}
	}
}
