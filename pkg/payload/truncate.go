package payload

const (
	// TransportByteCeiling is the default truncation budget in transport
	// bytes. The transport hard-drops events near 64KB; 32000 bytes of
	// string payload leaves headroom for the envelope.
	TransportByteCeiling = 32000

	// NoTruncation is the truncated-at index reported when every field fit
	// inside the budget.
	NoTruncation = -1
)

// Truncate fits an ordered field sequence into budgetBytes and reports the
// index truncation began at, or NoTruncation.
//
// Sizes are accounted in 2-byte UTF-16 code units, one terminator unit
// reserved per field, matching the transport's own arithmetic. Fields are
// kept whole from the head while budget remains; the first field that does
// not fit whole is clamped to the remaining units (possibly to "") and every
// field after it is emptied. The result always has len(fields) elements in
// the original order, earlier fields untouched.
func Truncate(fields []string, budgetBytes int) ([]string, int) {
	total := 0
	for _, f := range fields {
		total += 2 * (unitLen(f) + 1)
	}
	if total <= budgetBytes {
		return fields, NoTruncation
	}

	avail := budgetBytes/2 - len(fields)
	if avail < 0 {
		avail = 0
	}

	out := make([]string, len(fields))
	truncatedAt := NoTruncation
	for i, f := range fields {
		if truncatedAt != NoTruncation {
			continue
		}
		if l := unitLen(f); l <= avail {
			out[i] = f
			avail -= l
			continue
		}
		out[i] = clampUnits(f, avail)
		truncatedAt = i
	}
	return out, truncatedAt
}

// unitLen is the UTF-16 code-unit length of s: one unit per BMP rune, two
// per supplementary rune.
func unitLen(s string) int {
	n := 0
	for _, r := range s {
		n++
		if r > 0xFFFF {
			n++
		}
	}
	return n
}

// clampUnits cuts s to at most the given number of code units on a rune
// boundary. A supplementary rune that only half fits is dropped whole rather
// than split into a lone surrogate.
func clampUnits(s string, units int) string {
	if units <= 0 {
		return ""
	}
	n := 0
	for i, r := range s {
		w := 1
		if r > 0xFFFF {
			w = 2
		}
		if n+w > units {
			return s[:i]
		}
		n += w
	}
	return s
}
