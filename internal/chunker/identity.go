package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

// chunkIDLen is the truncated hex length of a chunk ID. 64 bits keeps keys
// compact; the residual collision risk across a corpus is accepted rather
// than silently enlarging the digest.
const chunkIDLen = 16

// ChunkID derives the stable identifier for a chunk from its position.
// It is a pure function of the inputs: reprocessing an identical document
// reproduces identical IDs, which is what lets the storage layer upsert
// with insert-if-absent semantics.
//
// subchunkIndex nil and subchunkIndex 0 produce different IDs; the
// presence of a sub-chunk index is itself part of the identity.
func ChunkID(documentID string, sectionPath []string, paragraphIndex int, subchunkIndex *int) string {
	sub := ""
	if subchunkIndex != nil {
		sub = strconv.Itoa(*subchunkIndex)
	}
	raw := documentID + "|" + strings.Join(sectionPath, "/") + "|" + strconv.Itoa(paragraphIndex) + "|" + sub
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:chunkIDLen]
}
