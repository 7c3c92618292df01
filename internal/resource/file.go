package resource

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"

	"warren/internal/dependency"
	"warren/internal/host"
)

// File manages a regular file's content, mode and owner.
type File struct {
	Meta
	Path    string // logical path, used in the ID
	Root    string
	Content []byte
	Mode    fs.FileMode
	Owner   host.Ownership
	// Sensitive suppresses content diffs, e.g. for the Erlang cookie.
	Sensitive bool
}

func (f *File) ID() dependency.NodeID     { return dependency.NodeID("file:" + f.Path) }
func (f *File) Kind() dependency.NodeKind { return dependency.KindFile }

func (f *File) target() string { return host.Rooted(f.Root, f.Path) }

func (f *File) Check(_ context.Context) (Status, error) {
	st, err := host.StatFile(f.target())
	if err != nil {
		return Status{}, fmt.Errorf("stat %s: %w", f.Path, err)
	}
	if st.IsDir {
		return Status{}, fmt.Errorf("%s is a directory", f.Path)
	}
	if !st.Exists {
		s := outOfSync(fmt.Sprintf("create with mode %04o", f.Mode))
		s.Diff = f.diff(nil)
		return s, nil
	}

	var changes []string
	var diff string
	if !st.ContentEqual(f.Content) {
		changes = append(changes, "update content")
		diff = f.diff(st.Content)
	}
	if st.Mode != f.Mode {
		changes = append(changes, fmt.Sprintf("mode %04o -> %04o", st.Mode, f.Mode))
	}
	if c := ownerChange(f.Owner, st); c != "" {
		changes = append(changes, c)
	}
	if len(changes) == 0 {
		return inSync(), nil
	}
	s := outOfSync(changes...)
	s.Diff = diff
	return s, nil
}

func (f *File) Apply(_ context.Context) error {
	owner, err := resolve(f.Owner)
	if err != nil {
		return err
	}
	st, err := host.StatFile(f.target())
	if err != nil {
		return err
	}
	if !st.ContentEqual(f.Content) {
		return host.WriteFileAtomic(f.target(), f.Content, f.Mode, owner)
	}
	return host.EnsureAttributes(f.target(), f.Mode, owner)
}

func (f *File) diff(current []byte) string {
	if f.Sensitive {
		return ""
	}
	return cmp.Diff(splitLines(current), splitLines(f.Content))
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

// Directory manages a directory's existence, mode and owner.
type Directory struct {
	Meta
	Path  string
	Root  string
	Mode  fs.FileMode
	Owner host.Ownership
}

func (d *Directory) ID() dependency.NodeID     { return dependency.NodeID("directory:" + d.Path) }
func (d *Directory) Kind() dependency.NodeKind { return dependency.KindDirectory }

func (d *Directory) Check(_ context.Context) (Status, error) {
	st, err := host.StatFile(host.Rooted(d.Root, d.Path))
	if err != nil {
		return Status{}, fmt.Errorf("stat %s: %w", d.Path, err)
	}
	if !st.Exists {
		return outOfSync(fmt.Sprintf("create with mode %04o", d.Mode)), nil
	}
	if !st.IsDir {
		return Status{}, fmt.Errorf("%s exists and is not a directory", d.Path)
	}

	var changes []string
	if st.Mode != d.Mode {
		changes = append(changes, fmt.Sprintf("mode %04o -> %04o", st.Mode, d.Mode))
	}
	if c := ownerChange(d.Owner, st); c != "" {
		changes = append(changes, c)
	}
	if len(changes) == 0 {
		return inSync(), nil
	}
	return outOfSync(changes...), nil
}

func (d *Directory) Apply(_ context.Context) error {
	owner, err := resolve(d.Owner)
	if err != nil {
		return err
	}
	target := host.Rooted(d.Root, d.Path)
	if err := os.MkdirAll(target, d.Mode); err != nil {
		return fmt.Errorf("create %s: %w", d.Path, err)
	}
	return host.EnsureAttributes(target, d.Mode, owner)
}

func resolve(o host.Ownership) (host.Owner, error) {
	if o.IsZero() {
		return host.NoOwner, nil
	}
	return o.Resolve()
}

// ownerChange describes the ownership change st needs, or "" if none. Names
// that do not resolve yet, before the package has created its user, are
// reported as a pending change instead of an error.
func ownerChange(o host.Ownership, st host.FileState) string {
	if o.IsZero() {
		return ""
	}
	owner, err := o.Resolve()
	if err != nil {
		return "owner -> " + o.String()
	}
	if owner.Matches(st) {
		return ""
	}
	return fmt.Sprintf("owner %d:%d -> %s", st.UID, st.GID, o)
}
