package share

import "strings"

// splitPath validates that p is absolute and splits it into non-empty
// segments, collapsing any repeated or trailing slashes.
func splitPath(p string) ([]string, bool) {
	if !strings.HasPrefix(p, "/") {
		return nil, false
	}
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs, true
}

// splitParentAndName splits an absolute path into its parent directory
// path and final segment name. It fails for "/" itself, which has no
// parent.
func splitParentAndName(p string) (parent, name string, ok bool) {
	segs, valid := splitPath(p)
	if !valid || len(segs) == 0 {
		return "", "", false
	}
	name = segs[len(segs)-1]
	parent = "/" + strings.Join(segs[:len(segs)-1], "/")
	return parent, name, true
}

// underSplits reports whether p is "/splits" or any path beneath it.
func underSplits(p string) bool {
	segs, ok := splitPath(p)
	return ok && len(segs) > 0 && segs[0] == splitsName
}
