package hashtool_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"scrub/internal/checksumfile"
	"scrub/internal/services"
	"scrub/internal/services/hashtool"
	"scrub/internal/testsupport"
)

func newClient(t *testing.T, fake *testsupport.FakeHashTool) *hashtool.Client {
	t.Helper()
	client, err := hashtool.New("sha256sum", hashtool.WithExecutor(fake))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := hashtool.New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestDigestReturnsRecord(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"a.txt": "hello"})
	client := newClient(t, &testsupport.FakeHashTool{})

	rec, err := client.Digest(context.Background(), dir, "a.txt")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	sum := sha256.Sum256([]byte("hello"))
	if rec.Digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected digest: %s", rec.Digest)
	}
	if rec.Path != "a.txt" || rec.Binary {
		t.Fatalf("unexpected record: %#v", rec)
	}
}

func TestDigestUnreadableFileIsIOError(t *testing.T) {
	client := newClient(t, &testsupport.FakeHashTool{})
	_, err := client.Digest(context.Background(), t.TempDir(), "missing.txt")
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestDigestToolFailureIsExternalToolError(t *testing.T) {
	client := newClient(t, &testsupport.FakeHashTool{FailRun: true})
	_, err := client.Digest(context.Background(), t.TempDir(), "a.txt")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestCheckOutcomes(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"good.txt": "same", "bad.txt": "tampered"})
	fake := &testsupport.FakeHashTool{CorruptPaths: map[string]bool{"bad.txt": true}}
	client := newClient(t, fake)

	goodSum := sha256.Sum256([]byte("same"))
	rec := checksumfile.Record{Digest: hex.EncodeToString(goodSum[:]), Path: "good.txt"}
	if outcome, detail := client.Check(context.Background(), dir, rec); outcome != hashtool.Pass || detail != "" {
		t.Fatalf("expected pass, got %v %q", outcome, detail)
	}

	rec.Path = "bad.txt"
	outcome, detail := client.Check(context.Background(), dir, rec)
	if outcome != hashtool.Mismatch {
		t.Fatalf("expected mismatch, got %v", outcome)
	}
	if detail == "" {
		t.Fatal("expected mismatch detail")
	}

	rec.Path = "gone.txt"
	if outcome, _ := client.Check(context.Background(), dir, rec); outcome != hashtool.Missing {
		t.Fatalf("expected missing, got %v", outcome)
	}

	// The missing file was classified without invoking the tool.
	for _, rel := range fake.CheckCalls() {
		if rel == "gone.txt" {
			t.Fatal("missing file should not reach the tool")
		}
	}
}

func TestCheckToolError(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"a.txt": "x"})
	client := newClient(t, &testsupport.FakeHashTool{FailRun: true})

	rec := checksumfile.Record{Digest: digestOf("x"), Path: "a.txt"}
	outcome, detail := client.Check(context.Background(), dir, rec)
	if outcome != hashtool.ToolError {
		t.Fatalf("expected tool error, got %v", outcome)
	}
	if detail == "" {
		t.Fatal("expected tool error detail")
	}
	if !outcome.Failed() {
		t.Fatal("tool errors must count as failures")
	}
}

func digestOf(contents string) string {
	sum := sha256.Sum256([]byte(contents))
	return hex.EncodeToString(sum[:])
}
