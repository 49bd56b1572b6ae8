package dav

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// etag fingerprints one resource from its id and last update time. Any
// write bumps updated_at, so the tag changes exactly when content does.
func etag(id string, updatedAt time.Time) string {
	sum := md5.Sum([]byte(id + ":" + updatedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

// collectionTag fingerprints a whole collection from its newest member
// update. Empty collections share the stable "empty" sentinel tag.
func collectionTag(latest *time.Time) string {
	if latest == nil {
		sum := md5.Sum([]byte("empty"))
		return hex.EncodeToString(sum[:])
	}
	sum := md5.Sum([]byte(latest.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

func quoted(tag string) string { return `"` + tag + `"` }
