package checksumfile

import (
	"fmt"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"scrub/internal/fileutil"
	"scrub/internal/services"
)

// Entry is one retained line of a checksum file: either a record or a
// verbatim comment/blank line.
type Entry struct {
	Comment  string
	Record   Record
	IsRecord bool
}

// File is the parsed form of one sidecar: an optional metadata header plus
// entries in file order.
type File struct {
	Meta    *Meta
	Entries []Entry
}

// Parse decodes sidecar contents. It fails on the first malformed record
// line, duplicate path, or digest-width mismatch; a failed parse yields no
// partial result.
func Parse(data []byte) (*File, error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	file := &File{}
	seen := make(map[string]struct{}, len(lines))
	digestWidth := 0
	for i, line := range lines {
		if i == 0 {
			if meta, ok := parseMetaLine(line); ok {
				file.Meta = &meta
				continue
			}
		}
		if line == "" || strings.HasPrefix(line, "#") {
			file.Entries = append(file.Entries, Entry{Comment: line})
			continue
		}
		rec, err := ParseRecordLine(line)
		if err != nil {
			return nil, services.Wrap(services.ErrParse, "", "", fmt.Sprintf("line %d", i+1), err)
		}
		if _, dup := seen[rec.Path]; dup {
			return nil, services.Wrap(services.ErrParse, "", "", fmt.Sprintf("line %d: duplicate record for %q", i+1, rec.Path), nil)
		}
		if digestWidth == 0 {
			digestWidth = len(rec.Digest)
		} else if len(rec.Digest) != digestWidth {
			return nil, services.Wrap(services.ErrParse, "", "", fmt.Sprintf("line %d: mixed digest algorithms (width %d after %d)", i+1, len(rec.Digest), digestWidth), nil)
		}
		seen[rec.Path] = struct{}{}
		file.Entries = append(file.Entries, Entry{Record: rec, IsRecord: true})
	}
	return file, nil
}

// Encode renders the file deterministically: header first when present, then
// entries in order, each line newline-terminated.
func (f *File) Encode() []byte {
	var b strings.Builder
	if f.Meta != nil {
		b.WriteString(formatMetaLine(*f.Meta))
		b.WriteByte('\n')
	}
	for _, entry := range f.Entries {
		if entry.IsRecord {
			b.WriteString(encodeRecordLine(entry.Record))
		} else {
			b.WriteString(entry.Comment)
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Append adds a record to the end of the file. The caller is responsible for
// path uniqueness; reconciliation only appends paths it knows are absent.
func (f *File) Append(rec Record) {
	f.Entries = append(f.Entries, Entry{Record: rec, IsRecord: true})
}

// Remove deletes the record matching the exact path and digest. Substring or
// prefix matches never qualify: removing "a.txt" leaves "aa.txt" alone.
func (f *File) Remove(path, digest string) bool {
	kept := f.Entries[:0]
	removed := false
	for _, entry := range f.Entries {
		if entry.IsRecord && entry.Record.Path == path && entry.Record.Digest == digest {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	f.Entries = kept
	return removed
}

// Records returns the record entries in file order.
func (f *File) Records() []Record {
	records := make([]Record, 0, len(f.Entries))
	for _, entry := range f.Entries {
		if entry.IsRecord {
			records = append(records, entry.Record)
		}
	}
	return records
}

// RecordCount reports the number of record lines, excluding comments and the
// header.
func (f *File) RecordCount() int {
	count := 0
	for _, entry := range f.Entries {
		if entry.IsRecord {
			count++
		}
	}
	return count
}

// PathSet returns the set of recorded paths for reconciliation diffs.
func (f *File) PathSet() mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, entry := range f.Entries {
		if entry.IsRecord {
			set.Add(entry.Record.Path)
		}
	}
	return set
}

// DigestFor looks up the record for a path.
func (f *File) DigestFor(path string) (Record, bool) {
	for _, entry := range f.Entries {
		if entry.IsRecord && entry.Record.Path == path {
			return entry.Record, true
		}
	}
	return Record{}, false
}

// Load reads and parses the sidecar at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Write encodes the file and replaces path atomically.
func Write(path string, f *File) error {
	return fileutil.WriteFileAtomic(path, f.Encode(), 0o644)
}
