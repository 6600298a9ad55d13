package report

import (
	"path"
	"strings"

	"github.com/ddddddO/gtree"
	"github.com/fulmenhq/forge/pkg/structure"
)

// Tree draws the paths created by a scaffold as a directory tree rooted at
// name. Directories get a trailing slash.
func (r *Writer) Tree(name string, records []structure.ChangeRecord) error {
	root := gtree.NewRoot(strings.TrimSuffix(name, "/") + "/")
	nodes := map[string]*gtree.Node{".": root}

	var add func(p string, dir bool) *gtree.Node
	add = func(p string, dir bool) *gtree.Node {
		if n, ok := nodes[p]; ok {
			return n
		}
		parent := add(path.Dir(p), true)
		label := path.Base(p)
		if dir {
			label += "/"
		}
		n := parent.Add(label)
		nodes[p] = n
		return n
	}
	for _, rec := range records {
		add(rec.Path, rec.Action == structure.ActionCreatedDir)
	}
	return gtree.OutputFromRoot(r.w, root)
}
