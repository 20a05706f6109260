package walk_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"scrub/internal/testsupport"
	"scrub/internal/walk"
)

func TestFilterMatch(t *testing.T) {
	cases := []struct {
		name   string
		filter walk.Filter
		file   string
		size   int64
		want   bool
	}{
		{"empty filter admits all", walk.Filter{}, "a.txt", 0, true},
		{"include match", walk.Filter{Include: []string{"*.jpg"}}, "pic.jpg", 10, true},
		{"include miss", walk.Filter{Include: []string{"*.jpg"}}, "doc.txt", 10, false},
		{"exclude wins", walk.Filter{Include: []string{"*"}, Exclude: []string{"*.tmp"}}, "x.tmp", 10, false},
		{"below min size", walk.Filter{MinSize: 100}, "a.txt", 99, false},
		{"at min size", walk.Filter{MinSize: 100}, "a.txt", 100, true},
		{"above max size", walk.Filter{MaxSize: 100}, "a.txt", 101, false},
		{"max zero unlimited", walk.Filter{}, "a.txt", 1 << 40, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Match(tc.file, tc.size); got != tc.want {
			t.Errorf("%s: Match(%q, %d) = %v, want %v", tc.name, tc.file, tc.size, got, tc.want)
		}
	}
}

func TestFilterValidate(t *testing.T) {
	if err := (walk.Filter{Include: []string{"*.jpg", "**/*.png"}}).Validate(); err != nil {
		t.Fatalf("valid patterns rejected: %v", err)
	}
	if err := (walk.Filter{Exclude: []string{"[unterminated"}}).Validate(); err == nil {
		t.Fatal("expected validation error for bad pattern")
	}
}

func TestDirsRespectsDepth(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"a/one.txt":     "1",
		"a/b/two.txt":   "2",
		"a/b/c/three.t": "3",
	})

	dirs, err := walk.Dirs(root, 1)
	if err != nil {
		t.Fatalf("Dirs: %v", err)
	}
	want := []string{root, filepath.Join(root, "a")}
	if !reflect.DeepEqual(dirs, want) {
		t.Fatalf("depth 1: got %v, want %v", dirs, want)
	}

	dirs, err = walk.Dirs(root, 0)
	if err != nil {
		t.Fatalf("Dirs: %v", err)
	}
	if !reflect.DeepEqual(dirs, []string{root}) {
		t.Fatalf("depth 0: got %v", dirs)
	}

	dirs, err = walk.Dirs(root, -1)
	if err != nil {
		t.Fatalf("Dirs: %v", err)
	}
	if len(dirs) != 4 {
		t.Fatalf("unlimited depth: got %v", dirs)
	}
}

func TestEligibleSkipsSidecarAndDirectories(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		".checksums":  "ignored",
		"b.txt":       "b",
		"a.txt":       "a",
		"sub/nested":  "n",
		"skipme.tmp":  "t",
		"big.bin":     "0123456789",
	})

	files, err := walk.Eligible(root, ".checksums", walk.Filter{Exclude: []string{"*.tmp"}, MaxSize: 5})
	if err != nil {
		t.Fatalf("Eligible: %v", err)
	}
	want := []string{"a.txt", "b.txt"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("got %v, want %v", files, want)
	}
}

func TestFindSidecarsStableOrder(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"z/.checksums":   "",
		"a/.checksums":   "",
		"a/b/.checksums": "",
		"a/other.txt":    "x",
	})

	found, err := walk.FindSidecars(root, ".checksums")
	if err != nil {
		t.Fatalf("FindSidecars: %v", err)
	}
	want := []string{
		filepath.Join(root, "a", ".checksums"),
		filepath.Join(root, "a", "b", ".checksums"),
		filepath.Join(root, "z", ".checksums"),
	}
	if !reflect.DeepEqual(found, want) {
		t.Fatalf("got %v, want %v", found, want)
	}
}
