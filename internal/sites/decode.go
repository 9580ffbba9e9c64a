package sites

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Per-site payload decoders, kept as pure functions so they are testable
// without network access.

var dataVarPattern = regexp.MustCompile(`var\s+DATA\s*=\s*'([^']+)'`)

// extractDataVar pulls the quoted payload out of an inline
// `var DATA = '...'` script block.
func extractDataVar(html []byte) (string, bool) {
	m := dataVarPattern.FindSubmatch(html)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// decodeSaltedBase64 decodes a base64 payload that carries a short junk
// prefix (the source rotates a salt of up to 16 characters in front of
// the real data). Offsets are tried in order until the decoded bytes form
// a JSON object.
func decodeSaltedBase64(payload string) ([]byte, error) {
	for offset := 0; offset <= 16 && offset < len(payload); offset++ {
		decoded, err := base64.StdEncoding.DecodeString(payload[offset:])
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(string(decoded)); strings.HasPrefix(trimmed, "{") {
			return []byte(trimmed), nil
		}
	}
	return nil, errors.New("no valid json found in base64 payload")
}

const packedHeaderSize = 9

// unscramblePacked reverses the binary obfuscation used by packed chapter
// payloads: the first 9 bytes are a header to discard, and the remainder
// is XORed against an 8-byte key derived from the comic and chapter ids
// (little-endian uint32 of each, concatenated).
func unscramblePacked(data []byte, comicID, chapterID uint32) ([]byte, error) {
	if len(data) <= packedHeaderSize {
		return nil, fmt.Errorf("packed payload too short: %d bytes", len(data))
	}
	var key [8]byte
	binary.LittleEndian.PutUint32(key[0:4], comicID)
	binary.LittleEndian.PutUint32(key[4:8], chapterID)

	body := data[packedHeaderSize:]
	out := make([]byte, len(body))
	for i, b := range body {
		out[i] = b ^ key[i%len(key)]
	}
	return out, nil
}
