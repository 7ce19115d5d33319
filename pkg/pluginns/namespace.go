// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"context"
	"slices"
	"strings"

	"github.com/plugload/plugload/pkg/lazy"
	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/pluginname"
)

type (
	// Namespace is the tree built for one Load. The tree never changes after
	// Build returns; only leaf memoization cells do, so a Namespace is safe
	// for concurrent use.
	Namespace struct {
		root        *Node
		leaves      []*Leaf
		overwritten []Entry
	}

	// Node is either a namespace with ordered children or a leaf.
	Node struct {
		path     pluginname.PropertyPath
		leaf     *Leaf
		children map[string]*Node
		order    []string
	}

	// Leaf binds a property path to one dependency identifier.
	Leaf struct {
		path       pluginname.PropertyPath
		identifier string
		cell       *lazy.Cell[any]
	}
)

func newNamespaceNode(path pluginname.PropertyPath) *Node {
	return &Node{path: path, children: make(map[string]*Node)}
}

func newLeaf(path pluginname.PropertyPath, identifier string, ld loader.Loader) *Leaf {
	return &Leaf{
		path:       path,
		identifier: identifier,
		cell: lazy.New(func(ctx context.Context) (any, error) {
			return ld.Load(ctx, identifier)
		}),
	}
}

// Root returns the top-level namespace node.
func (ns *Namespace) Root() *Node { return ns.root }

// Len returns the number of leaves.
func (ns *Namespace) Len() int { return len(ns.leaves) }

// Leaves returns the leaves in tree order.
func (ns *Namespace) Leaves() []*Leaf { return slices.Clone(ns.leaves) }

// Paths returns the leaf paths in tree order.
func (ns *Namespace) Paths() []pluginname.PropertyPath {
	paths := make([]pluginname.PropertyPath, len(ns.leaves))
	for i, l := range ns.leaves {
		paths[i] = l.path
	}
	return paths
}

// Overwritten returns the entries that lost to a later entry with the same
// path during Build.
func (ns *Namespace) Overwritten() []Entry { return slices.Clone(ns.overwritten) }

// Walk calls fn for every leaf in tree order and stops at the first error.
func (ns *Namespace) Walk(fn func(*Leaf) error) error {
	for _, l := range ns.leaves {
		if err := fn(l); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the node at path without loading anything. It stops at
// leaves: paths reaching into a module's own members are not found.
func (ns *Namespace) Lookup(path ...string) (*Node, bool) {
	n := ns.root
	for _, segment := range path {
		if n.leaf != nil {
			return nil, false
		}
		child, ok := n.children[segment]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// ParsePath splits dotted input into a property path using the tree. Child
// names may contain "." themselves, so at each namespace the longest child
// name that matches the input wins: "lodash.merge.fn" finds the leaf
// "lodash.merge" and the member "fn". Input past a leaf, or past a name the
// namespace does not have, is split on every ".".
func (ns *Namespace) ParsePath(s string) pluginname.PropertyPath {
	var path pluginname.PropertyPath
	rest := s
	for n := ns.root; rest != "" && n.leaf == nil; {
		name, ok := n.longestPrefix(rest)
		if !ok {
			break
		}
		path = append(path, name)
		n = n.children[name]
		rest = strings.TrimPrefix(rest[len(name):], pluginname.PathSeparator)
	}
	return append(path, pluginname.ParsePropertyPath(rest)...)
}

// Get returns the value at path. A path ending at a leaf loads and returns
// its module; a path continuing past a leaf descends into the module's
// members; a path ending at a namespace returns its *Node.
func (ns *Namespace) Get(ctx context.Context, path ...string) (any, error) {
	n := ns.root
	for i, segment := range path {
		if n.leaf != nil {
			v, err := n.leaf.Value(ctx)
			if err != nil {
				return nil, err
			}
			return memberPath(v, pluginname.PropertyPath(path), i)
		}
		child, ok := n.children[segment]
		if !ok {
			return nil, &PropertyError{Path: pluginname.PropertyPath(path[:i+1]), Err: ErrNoSuchProperty}
		}
		n = child
	}
	if n.leaf != nil {
		return n.leaf.Value(ctx)
	}
	return n, nil
}

// Call invokes the callable value at path with args.
func (ns *Namespace) Call(ctx context.Context, path []string, args ...any) (any, error) {
	v, err := ns.Get(ctx, path...)
	if err != nil {
		return nil, err
	}
	return call(v, pluginname.PropertyPath(path), args)
}

// ForceAll loads every leaf in tree order and returns the first error.
func (ns *Namespace) ForceAll(ctx context.Context) error {
	return ns.Walk(func(l *Leaf) error {
		_, err := l.Value(ctx)
		return err
	})
}

// Path returns the node's property path; the root has an empty path.
func (n *Node) Path() pluginname.PropertyPath { return n.path }

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.leaf != nil }

// Leaf returns the node's leaf, or nil for namespaces.
func (n *Node) Leaf() *Leaf { return n.leaf }

// Names returns the child names in insertion order.
func (n *Node) Names() []string { return slices.Clone(n.order) }

// Child returns the named child.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.children[name]
	return c, ok
}

// longestPrefix returns the longest child name that equals s or starts it
// followed by the path separator.
func (n *Node) longestPrefix(s string) (string, bool) {
	var best string
	found := false
	for _, name := range n.order {
		if found && len(name) <= len(best) {
			continue
		}
		if s == name || strings.HasPrefix(s, name+pluginname.PathSeparator) {
			best, found = name, true
		}
	}
	return best, found
}

// Path returns the leaf's property path.
func (l *Leaf) Path() pluginname.PropertyPath { return l.path }

// Identifier returns the dependency identifier the leaf loads.
func (l *Leaf) Identifier() string { return l.identifier }

// Value loads the module on first use and returns the memoized value
// afterwards. Load failures are returned unchanged and not memoized.
func (l *Leaf) Value(ctx context.Context) (any, error) {
	return l.cell.Force(ctx)
}

// Peek returns the memoized value without loading.
func (l *Leaf) Peek() (any, bool) { return l.cell.Peek() }

// State reports whether the leaf is loaded.
func (l *Leaf) State() lazy.State { return l.cell.State() }
