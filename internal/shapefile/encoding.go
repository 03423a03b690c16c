package shapefile

import "unicode/utf8"

// FixMojibake reverses the common encoding accident in cadastral exports:
// UTF-8 text that was decoded as Latin-1, turning every umlaut into a pair
// of characters in the 0x80-0xFF range ("Müller" -> "MÃ¼ller").
//
// The repair is best effort and never fails the import. Strings without any
// character in the suspicious range pass through untouched; strings that
// could not have come from a Latin-1 decode (code points above 0xFF) are
// returned unchanged; and if the reinterpreted bytes are not strict UTF-8
// the original is kept as-is.
func FixMojibake(s string) string {
	hasSuspect := false
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		if r >= 0x80 {
			hasSuspect = true
		}
	}
	if !hasSuspect {
		return s
	}

	// Reinterpret each code point as the raw byte Latin-1 decoded it from.
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		raw = append(raw, byte(r))
	}
	if !utf8.Valid(raw) {
		return s
	}

	decoded := string(raw)
	if decoded == s {
		return s
	}
	return decoded
}
