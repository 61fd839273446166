package galleria

import "strings"

// CanonicalPath strips the query string from a signed URL, leaving the
// stable object path that is stored in the image sequence. Two presigned
// URLs for the same key always canonicalize to the same path.
func CanonicalPath(signedURL string) string {
	if i := strings.IndexByte(signedURL, '?'); i >= 0 {
		return signedURL[:i]
	}
	return signedURL
}

// ObjectKey derives the storage key for a file owned by a user.
func ObjectKey(owner, filename string) string {
	return owner + "/" + filename
}
