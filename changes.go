package deptree

import (
	"fmt"
	"os"
	"strings"
)

// LineChange is one config line the session rewrote: the literal old and
// new text, newlines included.
type LineChange struct {
	Old string
	New string
}

// Changes lists the root config lines that differ between the session's
// original tree and its updated one, in file order. Version moves only
// ever rewrite lines in place, so the comparison is positional.
func (u *TreeUpdate) Changes() []LineChange {
	var out []LineChange
	for i, old := range u.OldTree.Lines {
		if i >= len(u.NewTree.Lines) {
			break
		}
		if updated := u.NewTree.Lines[i]; updated != old {
			out = append(out, LineChange{Old: old, New: updated})
		}
	}
	return out
}

// WriteChanges commits the session to disk: the root config file is first
// copied aside with a "~" suffix, then rewritten with the updated lines.
func (u *TreeUpdate) WriteChanges() error {
	path := u.OldTree.Release()
	original, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	if err := os.WriteFile(path+"~", original, info.Mode().Perm()); err != nil {
		return fmt.Errorf("back up %s: %w", path, err)
	}
	content := strings.Join(u.NewTree.Lines, "")
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
