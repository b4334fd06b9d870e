package contract

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/cassc/smart-contract-database-builder/src/utils/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// SimpleHash hashes the content after removing all the whitespaces, so
// formatting-only differences between otherwise identical sources collapse
// into the same id.
func SimpleHash(content string) string {
	stripped := whitespaceRe.ReplaceAllString(content, "")
	digest := md5.Sum([]byte(stripped)) // #nosec G401 -- content id, not a security hash
	return hex.EncodeToString(digest[:])
}

// HashSources derives the content id of a contract. A single file hashes
// directly, multiple files hash each file, sort the hashes and hash the
// concatenation, so the id doesn't depend on file ordering.
func HashSources(sources []model.SourceFile) string {
	if len(sources) == 1 {
		return SimpleHash(sources[0].Content)
	}

	hashes := make([]string, 0, len(sources))
	for _, source := range sources {
		hashes = append(hashes, SimpleHash(source.Content))
	}
	sort.Strings(hashes)

	return SimpleHash(strings.Join(hashes, ""))
}
