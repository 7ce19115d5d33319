// SPDX-License-Identifier: MPL-2.0

package pluginns

import (
	"context"

	"github.com/plugload/plugload/pkg/loader"
	"github.com/plugload/plugload/pkg/pluginname"
)

// Entry pairs a qualifying identifier with its property path.
type Entry struct {
	Path       pluginname.PropertyPath
	Identifier string
}

// Build installs entries into a new Namespace.
//
// Nodes are created for all but the last segment of each path and a leaf is
// installed at the last one. A leaf where a namespace exists, a namespace
// through an existing leaf, an empty segment or a segment containing "."
// fail with a *PathConflictError. Two leaves at the same path resolve to the
// later one. With o.Lazy false every leaf is loaded before Build returns and
// the first load error is returned unchanged.
func Build(ctx context.Context, entries []Entry, o Options) (*Namespace, error) {
	logger := o.logger()
	ld := o.Loader
	if ld == nil {
		ld = o.defaultLoader("")
	}

	ns := &Namespace{root: newNamespaceNode(nil)}
	for _, e := range entries {
		replaced, err := ns.install(e, ld)
		if err != nil {
			return nil, err
		}
		if replaced != nil {
			ns.overwritten = append(ns.overwritten, Entry{Path: replaced.path, Identifier: replaced.identifier})
			logger.Debug("plugin overwritten",
				"path", e.Path.String(), "identifier", e.Identifier, "previous", replaced.identifier)
			continue
		}
		logger.Debug("plugin installed", "path", e.Path.String(), "identifier", e.Identifier)
	}
	ns.leaves = collectLeaves(ns.root, nil)

	if !o.Lazy {
		if err := ns.ForceAll(ctx); err != nil {
			return nil, err
		}
		logger.Debug("plugins loaded eagerly", "count", ns.Len())
	}
	return ns, nil
}

// install places one entry and returns the leaf it replaced, if any.
func (ns *Namespace) install(e Entry, ld loader.Loader) (*Leaf, error) {
	if len(e.Path) == 0 {
		return nil, &PathConflictError{Path: e.Path, Identifier: e.Identifier, Reason: "empty property path"}
	}
	for _, segment := range e.Path {
		if reason := reservedSegment(segment); reason != "" {
			return nil, &PathConflictError{Path: e.Path, Identifier: e.Identifier, Reason: reason}
		}
	}

	n := ns.root
	for i, segment := range e.Path[:len(e.Path)-1] {
		child, ok := n.children[segment]
		switch {
		case !ok:
			child = newNamespaceNode(clonePath(e.Path[:i+1]))
			n.add(segment, child)
		case child.leaf != nil:
			return nil, &PathConflictError{
				Path:       e.Path,
				Identifier: e.Identifier,
				Existing:   child.leaf.identifier,
				Reason:     "leaf " + child.leaf.identifier + " already occupies " + child.path.String(),
			}
		}
		n = child
	}

	last := e.Path.Base()
	path := clonePath(e.Path)
	existing, ok := n.children[last]
	switch {
	case !ok:
		n.add(last, &Node{path: path, leaf: newLeaf(path, e.Identifier, ld)})
		return nil, nil
	case existing.leaf == nil:
		return nil, &PathConflictError{Path: e.Path, Identifier: e.Identifier, Reason: "a namespace already exists at " + path.String()}
	default:
		replaced := existing.leaf
		existing.leaf = newLeaf(path, e.Identifier, ld)
		return replaced, nil
	}
}

func (n *Node) add(name string, child *Node) {
	n.children[name] = child
	n.order = append(n.order, name)
}

// reservedSegment returns why segment cannot be used, or "". Segments may
// contain "."; Namespace.ParsePath resolves such names from dotted input.
func reservedSegment(segment string) string {
	if segment == "" {
		return "empty path segment"
	}
	return ""
}

func collectLeaves(n *Node, out []*Leaf) []*Leaf {
	if n.leaf != nil {
		return append(out, n.leaf)
	}
	for _, name := range n.order {
		out = collectLeaves(n.children[name], out)
	}
	return out
}

func clonePath(p pluginname.PropertyPath) pluginname.PropertyPath {
	return append(pluginname.PropertyPath(nil), p...)
}
