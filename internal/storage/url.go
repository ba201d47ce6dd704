package storage

import (
	"net/url"
	"strings"
)

// PublicURL derives a virtual-hosted style URL by putting the bucket name in
// front of the endpoint host: scheme://<bucket>.<host>/<key>. It returns ""
// unless endpoint is an absolute URL with both scheme and host.
func PublicURL(endpoint, bucket, key string) string {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + bucket + "." + u.Host + "/" + strings.TrimLeft(key, "/")
}
