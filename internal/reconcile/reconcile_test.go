package reconcile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scrub/internal/checksumfile"
	"scrub/internal/reconcile"
	"scrub/internal/services"
	"scrub/internal/services/hashtool"
	"scrub/internal/testsupport"
	"scrub/internal/walk"
)

func newEngine(t *testing.T, fake *testsupport.FakeHashTool) *reconcile.Engine {
	t.Helper()
	client, err := hashtool.New("sha256sum", hashtool.WithExecutor(fake))
	if err != nil {
		t.Fatalf("hashtool.New: %v", err)
	}
	return reconcile.New(client, nil)
}

func eligible(t *testing.T, dir string) []string {
	t.Helper()
	files, err := walk.Eligible(dir, ".checksums", walk.Filter{})
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	return files
}

func TestReconcileCreatesSidecar(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"a.txt": "alpha", "b.txt": "beta"})
	engine := newEngine(t, &testsupport.FakeHashTool{})
	sidecar := filepath.Join(dir, ".checksums")

	result, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir))
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Created || result.Added != 2 || result.Removed != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}

	file, err := checksumfile.Load(sidecar)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if file.RecordCount() != 2 {
		t.Fatalf("expected 2 records, got %d", file.RecordCount())
	}
	if file.Meta != nil {
		t.Fatal("fresh sidecar must not carry metadata")
	}
}

func TestReconcileCreatesEmptySidecarForEmptyDir(t *testing.T) {
	dir := t.TempDir()
	engine := newEngine(t, &testsupport.FakeHashTool{})
	sidecar := filepath.Join(dir, ".checksums")

	result, err := engine.Reconcile(context.Background(), dir, sidecar, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Created {
		t.Fatalf("expected creation, got %#v", result)
	}
	data := testsupport.ReadFileString(t, sidecar)
	if data != "" {
		t.Fatalf("expected empty sidecar, got %q", data)
	}
}

func TestReconcileNoOpDoesNotRehashOrTouchMetadata(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"a.txt": "alpha"})
	fake := &testsupport.FakeHashTool{}
	engine := newEngine(t, fake)
	sidecar := filepath.Join(dir, ".checksums")

	if _, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir)); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}
	if err := checksumfile.WriteMeta(sidecar, 1, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}
	before := testsupport.ReadFileString(t, sidecar)
	digestsBefore := len(fake.DigestCalls())

	result, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir))
	if err != nil {
		t.Fatalf("no-op reconcile: %v", err)
	}
	if result.Changed() {
		t.Fatalf("expected no-op, got %#v", result)
	}
	if len(fake.DigestCalls()) != digestsBefore {
		t.Fatalf("no-op reconcile must not rehash: %v", fake.DigestCalls())
	}
	if after := testsupport.ReadFileString(t, sidecar); after != before {
		t.Fatalf("file rewritten on no-op:\nbefore %q\nafter  %q", before, after)
	}
}

func TestReconcileAddAndRemove(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"keep.txt": "k", "old.txt": "o"})
	engine := newEngine(t, &testsupport.FakeHashTool{})
	sidecar := filepath.Join(dir, ".checksums")

	if _, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir)); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}
	if err := checksumfile.WriteMeta(sidecar, 0, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteMeta: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "old.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	testsupport.WriteTree(t, dir, map[string]string{"new.txt": "n"})

	result, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Added != 1 || result.Removed != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}

	file, err := checksumfile.Load(sidecar)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := file.DigestFor("old.txt"); ok {
		t.Fatal("old.txt record should be gone")
	}
	if _, ok := file.DigestFor("new.txt"); !ok {
		t.Fatal("new.txt record missing")
	}
	if file.Meta != nil {
		t.Fatal("metadata must be cleared when records change")
	}
}

func TestReconcileAddThenRemoveRestoresRecordSet(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"a.txt": "a", "b.txt": "b"})
	engine := newEngine(t, &testsupport.FakeHashTool{})
	sidecar := filepath.Join(dir, ".checksums")

	if _, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir)); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}
	original := testsupport.ReadFileString(t, sidecar)

	testsupport.WriteTree(t, dir, map[string]string{"c.txt": "c"})
	if _, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir)); err != nil {
		t.Fatalf("add reconcile: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "c.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir)); err != nil {
		t.Fatalf("remove reconcile: %v", err)
	}

	if restored := testsupport.ReadFileString(t, sidecar); restored != original {
		t.Fatalf("record set not restored:\noriginal %q\nrestored %q", original, restored)
	}
}

func TestReconcilePathPrecision(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"a.txt": "a", "aa.txt": "aa"})
	engine := newEngine(t, &testsupport.FakeHashTool{})
	sidecar := filepath.Join(dir, ".checksums")

	if _, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir)); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "a.txt")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	result, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Removed != 1 || result.Added != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}

	file, err := checksumfile.Load(sidecar)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := file.DigestFor("aa.txt"); !ok {
		t.Fatal("aa.txt must survive removal of a.txt")
	}
	if file.RecordCount() != 1 {
		t.Fatalf("expected exactly one record, got %d", file.RecordCount())
	}
}

func TestReconcileDigestFailureLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{"a.txt": "a"})
	engine := newEngine(t, &testsupport.FakeHashTool{})
	sidecar := filepath.Join(dir, ".checksums")

	if _, err := engine.Reconcile(context.Background(), dir, sidecar, eligible(t, dir)); err != nil {
		t.Fatalf("initial reconcile: %v", err)
	}
	before := testsupport.ReadFileString(t, sidecar)

	// A file that appears eligible but cannot be read aborts the directory.
	_, err := engine.Reconcile(context.Background(), dir, sidecar, []string{"a.txt", "phantom.txt"})
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if after := testsupport.ReadFileString(t, sidecar); after != before {
		t.Fatalf("sidecar modified despite aborted reconcile:\n%q", after)
	}
}

func TestReconcileUnparsableSidecar(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{".checksums": "garbage line\n", "a.txt": "a"})
	engine := newEngine(t, &testsupport.FakeHashTool{})

	_, err := engine.Reconcile(context.Background(), dir, filepath.Join(dir, ".checksums"), eligible(t, dir))
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
