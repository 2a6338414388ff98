package tree

import (
	"sort"
	"testing"
)

func TestBuild_RoundTrip(t *testing.T) {
	paths := []string{
		"src/main/java/com/example/App.java",
		"src/main/java/com/example/Service.java",
		"src/test/java/com/example/AppTest.java",
		"pom.xml",
		"README.md",
	}

	root := Build(paths)

	got := root.Paths()
	sort.Strings(got)
	want := append([]string(nil), paths...)
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("expected %d paths, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Every recorded path must walk back to exactly that leaf.
	for _, p := range paths {
		if !reaches(root, p) {
			t.Fatalf("path %s not reachable from root", p)
		}
	}
}

func TestBuild_TwoLeavesShareDirectory(t *testing.T) {
	root := Build([]string{"src/A.java", "src/B.java"})

	src, ok := root.Children["src"]
	if !ok {
		t.Fatal("expected src directory")
	}
	if src.Type != NodeTypeDir {
		t.Fatalf("expected src to be a directory, got %s", src.Type)
	}
	if len(src.Children) != 2 {
		t.Fatalf("expected 2 leaves under src, got %d", len(src.Children))
	}
	for _, name := range []string{"A.java", "B.java"} {
		leaf, ok := src.Children[name]
		if !ok {
			t.Fatalf("missing leaf %s", name)
		}
		if leaf.Type != NodeTypeFile {
			t.Fatalf("expected %s to be a file", name)
		}
		if leaf.Path != "src/"+name {
			t.Fatalf("leaf %s carries wrong full path %q", name, leaf.Path)
		}
	}
}

func TestBuild_DuplicatePathsAreIdempotent(t *testing.T) {
	root := Build([]string{"docs/guide.md", "docs/guide.md", "docs/guide.md"})

	if got := root.CountFiles(); got != 1 {
		t.Fatalf("expected 1 file, got %d", got)
	}
}

func TestBuild_OrderDoesNotMatter(t *testing.T) {
	a := Build([]string{"a/b/c.txt", "a/d.txt", "e.txt"})
	b := Build([]string{"e.txt", "a/d.txt", "a/b/c.txt"})

	pa, pb := a.Paths(), b.Paths()
	sort.Strings(pa)
	sort.Strings(pb)
	if len(pa) != len(pb) {
		t.Fatalf("trees differ in size: %d vs %d", len(pa), len(pb))
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("trees differ at %d: %s vs %s", i, pa[i], pb[i])
		}
	}
}

func TestBuild_LeafDirectoryCollision(t *testing.T) {
	// "src" is inserted as a file first; a later path needing it as a
	// directory is skipped. First writer wins.
	root := Build([]string{"src", "src/A.java"})

	node, ok := root.Children["src"]
	if !ok {
		t.Fatal("expected src node")
	}
	if node.Type != NodeTypeFile {
		t.Fatalf("expected src to stay a file, got %s", node.Type)
	}
	if got := root.CountFiles(); got != 1 {
		t.Fatalf("expected 1 file, got %d", got)
	}

	// And the reverse: a directory is not displaced by a same-named file.
	root = Build([]string{"src/A.java", "src"})
	node = root.Children["src"]
	if node.Type != NodeTypeDir {
		t.Fatalf("expected src to stay a directory, got %s", node.Type)
	}
	if got := root.CountFiles(); got != 1 {
		t.Fatalf("expected 1 file, got %d", got)
	}
}

func TestBuild_IgnoresEmptyAndSlashOnlyPaths(t *testing.T) {
	root := Build([]string{"", "   ", "/", "a.txt"})
	if got := root.CountFiles(); got != 1 {
		t.Fatalf("expected 1 file, got %d", got)
	}
}

func reaches(root *Node, path string) bool {
	segments := splitPath(path)
	node := root
	for i, segment := range segments {
		child, ok := node.Children[segment]
		if !ok {
			return false
		}
		if i == len(segments)-1 {
			return child.Type == NodeTypeFile && child.Path == path
		}
		if child.Type != NodeTypeDir {
			return false
		}
		node = child
	}
	return false
}

func splitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	return segments
}
