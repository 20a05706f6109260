package checksumfile

import (
	"errors"
	"fmt"
	"strings"
)

// minDigestLen is the shortest hex digest any supported tool emits (MD5).
const minDigestLen = 32

// Record is one digest entry in a checksum file. Path is relative to the
// sidecar's directory and unique within the file. Binary mirrors the hashing
// tool's '*' mode marker.
type Record struct {
	Digest string
	Binary bool
	Path   string
}

// ParseRecordLine parses a single "<digest> <mode><path>" line as written by
// sha256sum-style tools, where mode is ' ' for text and '*' for binary.
func ParseRecordLine(line string) (Record, error) {
	sep := strings.IndexByte(line, ' ')
	if sep < 0 || len(line) < sep+3 {
		return Record{}, errors.New("malformed record line")
	}
	digest := line[:sep]
	mode := line[sep+1]
	path := line[sep+2:]

	if err := validateDigest(digest); err != nil {
		return Record{}, err
	}
	if mode != ' ' && mode != '*' {
		return Record{}, fmt.Errorf("unknown mode marker %q", string(mode))
	}
	if path == "" {
		return Record{}, errors.New("empty path")
	}
	return Record{Digest: digest, Binary: mode == '*', Path: path}, nil
}

// Line renders the record the way the hashing tool expects it, suitable for
// feeding back into the tool's check mode.
func (r Record) Line() string {
	return encodeRecordLine(r)
}

func encodeRecordLine(rec Record) string {
	mode := " "
	if rec.Binary {
		mode = "*"
	}
	return rec.Digest + " " + mode + rec.Path
}

func validateDigest(digest string) error {
	if len(digest) < minDigestLen || len(digest)%2 != 0 {
		return fmt.Errorf("digest length %d is not a known algorithm width", len(digest))
	}
	for _, r := range digest {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return fmt.Errorf("digest contains non-hex character %q", r)
		}
	}
	return nil
}
