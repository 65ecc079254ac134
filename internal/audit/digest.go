package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileDigest returns the SHA-256 hex digest of a sensor log file.
// Identical digests across supposedly independent channel files mean
// the same capture was saved twice under different names.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SameFile reports whether two files are byte-identical by comparing
// their SHA-256 digests.
func SameFile(pathA, pathB string) (bool, error) {
	da, err := FileDigest(pathA)
	if err != nil {
		return false, err
	}
	db, err := FileDigest(pathB)
	if err != nil {
		return false, err
	}
	return da == db, nil
}
