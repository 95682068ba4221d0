package runner

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// SourceDigest pins one input file of a run.
type SourceDigest struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	BLAKE3 string `json:"blake3"`
}

// DigestFile hashes a file with BLAKE3.
func DigestFile(path string) (SourceDigest, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided log path is expected
	if err != nil {
		return SourceDigest{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return SourceDigest{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	return SourceDigest{Path: path, Size: n, BLAKE3: hex.EncodeToString(h.Sum(nil))}, nil
}
