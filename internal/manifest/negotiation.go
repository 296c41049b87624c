package manifest

import "strings"

// Accept-header profile fragments identifying each presentation version.
const (
	acceptProfileV2 = "presentation/2"
	acceptProfileV3 = "presentation/3"
)

// Negotiate selects the schema version for a response. An explicit path
// segment ("v2"/"v3") wins; otherwise the Accept header's profile decides;
// otherwise the canonical version applies. Responses must always carry
// "Vary: Accept" regardless of which input decided, so caches key correctly.
func Negotiate(pathVersion, acceptHeader string) Version {
	switch pathVersion {
	case "v2":
		return V2
	case "v3":
		return V3
	}
	for _, part := range strings.Split(acceptHeader, ",") {
		switch {
		case strings.Contains(part, acceptProfileV2):
			return V2
		case strings.Contains(part, acceptProfileV3):
			return V3
		}
	}
	return CanonicalVersion
}

// ContentType returns the media type advertised for documents of version v.
func ContentType(v Version) string {
	if v == V2 {
		return `application/ld+json;profile="` + contextV2 + `"`
	}
	return `application/ld+json;profile="` + contextV3 + `"`
}
