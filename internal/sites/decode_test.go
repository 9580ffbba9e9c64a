package sites

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractDataVar(t *testing.T) {
	t.Parallel()

	html := []byte(`<html><script>var DATA = 'abc123==';</script></html>`)
	got, ok := extractDataVar(html)
	require.True(t, ok)
	require.Equal(t, "abc123==", got)

	_, ok = extractDataVar([]byte(`<html>error page</html>`))
	require.False(t, ok)
}

func TestDecodeSaltedBase64(t *testing.T) {
	t.Parallel()

	payload := `{"comic":{"title":"one piece"}}`
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))

	tests := []struct {
		name string
		in   string
	}{
		{name: "no salt", in: encoded},
		{name: "short salt", in: "xyz" + encoded},
		{name: "long salt", in: "0a1b2c3d4e5f" + encoded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := decodeSaltedBase64(tt.in)
			require.NoError(t, err)
			require.JSONEq(t, payload, string(got))
		})
	}
}

func TestDecodeSaltedBase64_NoJSON(t *testing.T) {
	t.Parallel()

	_, err := decodeSaltedBase64(base64.StdEncoding.EncodeToString([]byte("not json")))
	require.Error(t, err)
}

// packForTest applies the wire obfuscation: 9 junk header bytes, then the
// body XORed with the id-derived key.
func packForTest(plain []byte, comicID, chapterID uint32) []byte {
	var key [8]byte
	binary.LittleEndian.PutUint32(key[0:4], comicID)
	binary.LittleEndian.PutUint32(key[4:8], chapterID)

	out := make([]byte, packedHeaderSize+len(plain))
	copy(out, []byte("\x00HDRHDR\x00\x01"))
	for i, b := range plain {
		out[packedHeaderSize+i] = b ^ key[i%len(key)]
	}
	return out
}

func TestUnscramblePacked_RoundTrip(t *testing.T) {
	t.Parallel()

	plain := []byte(`{"images":["http://img/1.jpg","http://img/2.jpg"]}`)
	packed := packForTest(plain, 505430, 9527)

	got, err := unscramblePacked(packed, 505430, 9527)
	require.NoError(t, err)
	require.Equal(t, plain, got)
}

func TestUnscramblePacked_WrongKeyYieldsGarbage(t *testing.T) {
	t.Parallel()

	plain := []byte(`{"images":[]}`)
	packed := packForTest(plain, 505430, 9527)

	got, err := unscramblePacked(packed, 505430, 9999)
	require.NoError(t, err)
	require.NotEqual(t, plain, got)
}

func TestUnscramblePacked_TooShort(t *testing.T) {
	t.Parallel()

	_, err := unscramblePacked([]byte("tiny"), 1, 2)
	require.Error(t, err)
}
