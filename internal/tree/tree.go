package tree

import "strings"

const (
	NodeTypeDir  = "dir"
	NodeTypeFile = "file"
)

// Node is one entry in the repository file tree. Directories carry a
// Children map keyed by path segment; files carry the untouched full
// path they were inserted with.
type Node struct {
	Type     string           `json:"type"`
	Path     string           `json:"path,omitempty"`
	Children map[string]*Node `json:"children,omitempty"`
}

// NewRoot returns an empty directory node.
func NewRoot() *Node {
	return &Node{Type: NodeTypeDir, Children: make(map[string]*Node)}
}

// Build converts a flat list of forward-slash separated file paths into a
// nested tree. Input order does not affect the resulting structure.
// Inserting the same path twice is a no-op, and when a segment already
// exists with a conflicting kind (a file where a directory is needed, or
// the other way around) the first writer wins and the later path is skipped.
func Build(paths []string) *Node {
	root := NewRoot()
	for _, path := range paths {
		insert(root, path)
	}
	return root
}

func insert(root *Node, path string) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return
	}

	segments := strings.Split(trimmed, "/")
	node := root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node.Children[segment]
		if !ok {
			child = &Node{Type: NodeTypeDir, Children: make(map[string]*Node)}
			node.Children[segment] = child
		}
		if child.Type != NodeTypeDir {
			// A file already occupies this segment.
			return
		}
		node = child
	}

	leaf := segments[len(segments)-1]
	if _, ok := node.Children[leaf]; ok {
		return
	}
	node.Children[leaf] = &Node{Type: NodeTypeFile, Path: path}
}

// Paths returns every file path recorded in the tree, in no particular order.
func (n *Node) Paths() []string {
	if n == nil {
		return nil
	}
	var paths []string
	n.walk(func(file *Node) {
		paths = append(paths, file.Path)
	})
	return paths
}

// CountFiles returns the number of file leaves in the tree.
func (n *Node) CountFiles() int {
	if n == nil {
		return 0
	}
	count := 0
	n.walk(func(*Node) { count++ })
	return count
}

func (n *Node) walk(visit func(file *Node)) {
	if n.Type == NodeTypeFile {
		visit(n)
		return
	}
	for _, child := range n.Children {
		child.walk(visit)
	}
}
