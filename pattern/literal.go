package pattern

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// literalFault describes why a literal could not be decoded. at is the
// byte offset of the fault relative to the start of the token text.
type literalFault struct {
	at     int
	reason string
	err    error
}

// timestampShape is the only accepted timestamp layout: seconds precision
// or up to microseconds, always with a literal Z.
var timestampShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{1,6})?Z$`)

// quotedBody strips an optional one-letter prefix and the surrounding quotes.
// It returns the body and its offset inside text.
func quotedBody(text string) (string, int) {
	open := strings.IndexByte(text, '\'')
	return text[open+1 : len(text)-1], open + 1
}

// decodeString decodes a single-quoted string literal. Only \\ and \' are
// escapes; a backslash before a raw newline yields the newline itself.
func decodeString(text string) (Constant, *literalFault) {
	body, base := quotedBody(text)
	if !utf8.ValidString(body) {
		return nil, &literalFault{at: base, reason: "invalid UTF-8"}
	}

	var sb strings.Builder
	sb.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch c {
		case '\\':
			if i+1 >= len(body) {
				return nil, &literalFault{at: base + i, reason: "dangling escape"}
			}
			next := body[i+1]
			switch next {
			case '\\', '\'', '\n':
				sb.WriteByte(next)
				i++
			default:
				r, _ := utf8.DecodeRuneInString(body[i+1:])
				return nil, &literalFault{at: base + i, reason: "unsupported escape sequence \\" + string(r)}
			}
		case '\n':
			return nil, &literalFault{at: base + i, reason: "raw newline in string; escape it with a backslash"}
		default:
			sb.WriteByte(c)
		}
	}
	return StringConstant(sb.String()), nil
}

// decodeHex validates an h'...' literal.
func decodeHex(text string) (Constant, *literalFault) {
	body, base := quotedBody(text)
	for i := 0; i < len(body); i++ {
		if !isHexDigit(body[i]) {
			return nil, &literalFault{at: base + i, reason: "character outside the hex alphabet"}
		}
	}
	if len(body)%2 != 0 {
		return nil, &literalFault{at: base, reason: "odd number of hex digits"}
	}
	if _, err := hex.DecodeString(body); err != nil {
		return nil, &literalFault{at: base, reason: "malformed hex", err: err}
	}
	return HexConstant(body), nil
}

// decodeBinary validates a b'...' literal as padded standard base64.
func decodeBinary(text string) (Constant, *literalFault) {
	body, base := quotedBody(text)
	if _, err := base64.StdEncoding.Strict().DecodeString(body); err != nil {
		at := base
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) && int(corrupt) <= len(body) {
			at += int(corrupt)
		}
		return nil, &literalFault{at: at, reason: "malformed base64", err: err}
	}
	return BinaryConstant(body), nil
}

// decodeTimestamp parses a t'YYYY-MM-DDTHH:MM:SS[.frac]Z' literal into UTC.
func decodeTimestamp(text string) (Constant, *literalFault) {
	body, base := quotedBody(text)
	if !timestampShape.MatchString(body) {
		return nil, &literalFault{at: base, reason: "expected YYYY-MM-DDTHH:MM:SS[.ffffff]Z"}
	}
	ts, err := time.Parse(time.RFC3339Nano, body)
	if err != nil {
		return nil, &literalFault{at: base, reason: "date or time out of range", err: err}
	}
	return TimestampConstant(ts.UTC()), nil
}

// decodeInt parses a signed decimal integer that must fit in 64 bits.
func decodeInt(text string) (Constant, *literalFault) {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		reason := "malformed integer"
		if errors.Is(err, strconv.ErrRange) {
			reason = "out of 64-bit integer range"
		}
		return nil, &literalFault{reason: reason, err: err}
	}
	return IntConstant(n), nil
}

// decodeFloat parses a decimal float with optional exponent.
func decodeFloat(text string) (Constant, *literalFault) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		reason := "malformed float"
		if errors.Is(err, strconv.ErrRange) {
			reason = "out of float64 range"
		}
		return nil, &literalFault{reason: reason, err: err}
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, &literalFault{reason: "not a finite number"}
	}
	return FloatConstant(f), nil
}

func decodeBool(text string) Constant {
	return BoolConstant(strings.EqualFold(text, "true"))
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
