package util

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// PreviewNamespace scopes content IDs so the same bytes always map to the
// same preview ID
var PreviewNamespace = uuid.MustParse("6f0d3c1e-5a43-4bd4-9a7e-0e6b1f2d9c41")

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ContentID returns a name-based (version 3) UUID for the content
func ContentID(content []byte) string {
	return uuid.NewMD5(PreviewNamespace, content).String()
}
