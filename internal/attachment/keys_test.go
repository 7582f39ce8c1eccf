package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStoreKey(t *testing.T) {
	cases := []struct {
		name   string
		in     Attachment
		want   string
		wantOK bool
	}{
		{"explicit key wins", NewStored("https://other.example/zzz.jpg", "k1", "", ""), "k1", true},
		{"key without url", Attachment{Kind: KindStored, Key: "k2"}, "k2", true},
		{"s3 url", FromURL("https://bucket.s3.region.amazonaws.com/prefix123_file.jpg"), "prefix123_file.jpg", true},
		{"stored without key", NewStored("https://bucket.s3.region.amazonaws.com/uploads/1_a.png", "", "", ""), "uploads/1_a.png", true},
		{"relative path", FromURL("/uploads/a.png"), "", false},
		{"not a url", FromURL("not a url"), "", false},
		{"data uri", FromURL("data:image/png;base64,AAAA"), "", false},
		{"host only", FromURL("https://bucket.s3.amazonaws.com/"), "", false},
		{"file url", FromURL("file:///k"), "k", true},
		{"broken url", FromURL("https://%zz"), "", false},
		{"absent", Attachment{}, "", false},
		{"raw scalar", Attachment{Kind: KindRaw, Raw: []byte("5")}, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractStoreKey(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKeyFromURL_DecodesEscapes(t *testing.T) {
	key, ok := KeyFromURL("https://b.s3.ap-south-1.amazonaws.com/17000_my%20photo.jpg")
	assert.True(t, ok)
	assert.Equal(t, "17000_my photo.jpg", key)
}
