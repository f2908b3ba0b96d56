package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"fuzzyjoin/internal/fileutil"
)

// Fingerprint hashes the identity of each input file (path, size, mtime)
// together with the JSON form of params. Any change to an input or to a
// matching parameter yields a different fingerprint.
func Fingerprint(inputs []string, params any) (string, error) {
	h := sha256.New()
	for _, input := range inputs {
		sig, err := fileutil.Signature(input)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", input, err)
		}
		fmt.Fprintln(h, sig)
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("fingerprint params: %w", err)
	}
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}
