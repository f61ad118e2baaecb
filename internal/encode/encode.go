// Package encode percent-encodes text for use in a URL query string.
package encode

// DefaultCapacity is the buffer size used for an encoded message, including
// room for a terminator.
const DefaultCapacity = 1024

const upperhex = "0123456789ABCDEF"

// Encode returns text percent-encoded for a query string.
//
// Alphanumerics and "-_.~" pass through, space becomes '+', and every other
// byte becomes a %XX escape with uppercase hex digits. The result never
// exceeds capacity-1 bytes: encoding stops at the first unit that would not
// fit, so an escape is either emitted whole or not at all.
func Encode(text string, capacity int) string {
	limit := capacity - 1
	if limit <= 0 {
		return ""
	}

	out := make([]byte, 0, min(limit, len(text)*3))
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case unreserved(c):
			if len(out)+1 > limit {
				return string(out)
			}
			out = append(out, c)
		case c == ' ':
			if len(out)+1 > limit {
				return string(out)
			}
			out = append(out, '+')
		default:
			if len(out)+3 > limit {
				return string(out)
			}
			out = append(out, '%', upperhex[c>>4], upperhex[c&0x0F])
		}
	}
	return string(out)
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
