package testsupport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FakeHashTool implements hashtool.Executor in process. Digest requests hash
// the real file with SHA-256; check requests recompute and compare, printing
// coreutils-style OK/FAILED lines. Every call is recorded so tests can assert
// that unchanged files are never rehashed.
type FakeHashTool struct {
	mu          sync.Mutex
	digestCalls []string
	checkCalls  []string

	// FailRun simulates a tool that cannot start.
	FailRun bool
	// CorruptPaths forces a mismatch for the given relative paths.
	CorruptPaths map[string]bool
}

// Run dispatches on the argument shape the hashing tool client uses.
func (f *FakeHashTool) Run(_ context.Context, dir, _ string, args []string, stdin string) (string, int, error) {
	if f.FailRun {
		return "", -1, errors.New("tool cannot run")
	}
	if len(args) == 3 && args[0] == "-c" {
		return f.check(dir, stdin)
	}
	if len(args) == 1 {
		return f.digest(dir, args[0])
	}
	return "", -1, fmt.Errorf("unexpected arguments %v", args)
}

// DigestCalls returns the relative paths digested so far.
func (f *FakeHashTool) DigestCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.digestCalls...)
}

// CheckCalls returns the relative paths checked so far.
func (f *FakeHashTool) CheckCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checkCalls...)
}

func (f *FakeHashTool) digest(dir, rel string) (string, int, error) {
	f.mu.Lock()
	f.digestCalls = append(f.digestCalls, rel)
	f.mu.Unlock()

	sum, err := hashFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return "", 1, nil
	}
	return sum + "  " + rel + "\n", 0, nil
}

func (f *FakeHashTool) check(dir, stdin string) (string, int, error) {
	line := strings.TrimSuffix(stdin, "\n")
	sep := strings.IndexByte(line, ' ')
	if sep < 0 || len(line) < sep+3 {
		return "", 2, nil
	}
	want := line[:sep]
	rel := line[sep+2:]

	f.mu.Lock()
	f.checkCalls = append(f.checkCalls, rel)
	corrupt := f.CorruptPaths[rel]
	f.mu.Unlock()

	got, err := hashFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return rel + ": FAILED open or read\n", 1, nil
	}
	if corrupt || got != want {
		return rel + ": FAILED\n", 1, nil
	}
	return rel + ": OK\n", 0, nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
