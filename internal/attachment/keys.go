package attachment

import (
	"net/url"
	"strings"
)

// ExtractStoreKey returns the object-store key an attachment points at.
// An explicit key always wins; otherwise the key is the path of an absolute
// URL without its leading slash.
func ExtractStoreKey(a Attachment) (string, bool) {
	switch a.Kind {
	case KindStored:
		if a.Key != "" {
			return a.Key, true
		}
		return KeyFromURL(a.URL)
	case KindURL:
		return KeyFromURL(a.URL)
	default:
		return "", false
	}
}

// KeyFromURL derives a store key from the path of an absolute URL. Relative
// references, opaque URIs such as data: and unparsable input yield no key.
func KeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", false
	}
	return key, true
}
