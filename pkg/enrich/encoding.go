package enrich

import "unicode/utf8"

// fixEncoding repairs place names the geocoding service sometimes delivers
// as UTF-8 bytes mis-decoded as Latin-1 ("SÃ£o" for "São"). Each rune is
// narrowed back to its Latin-1 byte and the result re-read as UTF-8; if
// either step is impossible the input was not mojibake and is returned
// unchanged.
func fixEncoding(s string) string {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		buf = append(buf, byte(r))
	}
	if !utf8.Valid(buf) {
		return s
	}
	return string(buf)
}
