package checksumfile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"scrub/internal/fileutil"
)

// TimeLayout is the timestamp format used in metadata headers.
const TimeLayout = "2006-01-02_15:04:05"

const metaPrefix = "# last checked "

// Meta is the verification metadata header of a sidecar. A zero LastChecked
// means the file has never been verified.
type Meta struct {
	LastChecked time.Time
	Failures    int
}

// Never reports whether the file has never been verified.
func (m Meta) Never() bool {
	return m.LastChecked.IsZero()
}

func parseMetaLine(line string) (Meta, bool) {
	rest, ok := strings.CutPrefix(line, metaPrefix)
	if !ok {
		return Meta{}, false
	}
	stamp, tail, ok := strings.Cut(rest, " with ")
	if !ok {
		return Meta{}, false
	}
	countText, ok := strings.CutSuffix(tail, " failures")
	if !ok {
		return Meta{}, false
	}
	count, err := strconv.Atoi(countText)
	if err != nil || count < 0 {
		return Meta{}, false
	}
	checked, err := time.ParseInLocation(TimeLayout, stamp, time.UTC)
	if err != nil {
		return Meta{}, false
	}
	return Meta{LastChecked: checked, Failures: count}, true
}

func formatMetaLine(m Meta) string {
	return fmt.Sprintf("%s%s with %d failures", metaPrefix, m.LastChecked.UTC().Format(TimeLayout), m.Failures)
}

// ReadMeta returns the metadata header of the sidecar at path. A missing
// file, unreadable contents, or an absent header all yield the zero Meta;
// absence is not an error.
func ReadMeta(path string) Meta {
	file, err := os.Open(path)
	if err != nil {
		return Meta{}
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return Meta{}
	}
	meta, _ := parseMetaLine(scanner.Text())
	return meta
}

// WriteMeta stamps the sidecar at path with a fresh header carrying the given
// failure count, replacing an existing header in place or inserting one as
// the new first line. The rest of the file is rewritten byte for byte, so the
// header can be updated even when record lines would not parse.
func WriteMeta(path string, failures int, now time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read checksum file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	header := formatMetaLine(Meta{LastChecked: now, Failures: failures})
	if len(lines) > 0 {
		if _, ok := parseMetaLine(lines[0]); ok {
			lines[0] = header
		} else {
			lines = append([]string{header}, lines...)
		}
	} else {
		lines = []string{header}
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644)
}
