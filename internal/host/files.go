package host

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/renameio/v2"
)

// FileState describes what is currently on disk at a path.
type FileState struct {
	Exists  bool
	IsDir   bool
	Mode    fs.FileMode
	UID     int
	GID     int
	Content []byte
}

// StatFile reads the state of path. Content is only loaded for regular files.
// A missing path is not an error.
func StatFile(path string) (FileState, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileState{}, nil
		}
		return FileState{}, err
	}

	st := FileState{Exists: true, IsDir: info.IsDir(), Mode: info.Mode().Perm(), UID: -1, GID: -1}
	if sys, ok := info.Sys().(*syscall.Stat_t); ok {
		st.UID = int(sys.Uid)
		st.GID = int(sys.Gid)
	}
	if info.Mode().IsRegular() {
		st.Content, err = os.ReadFile(path)
		if err != nil {
			return FileState{}, err
		}
	}
	return st, nil
}

// Owner is a resolved uid/gid pair. A negative id leaves that side alone.
type Owner struct {
	UID int
	GID int
}

// NoOwner leaves ownership untouched.
var NoOwner = Owner{UID: -1, GID: -1}

// LookupOwner resolves user and group names. Empty names resolve to -1.
func LookupOwner(userName, groupName string) (Owner, error) {
	o := NoOwner
	if userName != "" {
		u, err := user.Lookup(userName)
		if err != nil {
			return NoOwner, fmt.Errorf("look up user %s: %w", userName, err)
		}
		o.UID, _ = strconv.Atoi(u.Uid)
	}
	if groupName != "" {
		g, err := user.LookupGroup(groupName)
		if err != nil {
			return NoOwner, fmt.Errorf("look up group %s: %w", groupName, err)
		}
		o.GID, _ = strconv.Atoi(g.Gid)
	}
	return o, nil
}

// Ownership names the owner of a managed path. The names are resolved when
// the path is checked, since the broker package creates its user on install.
// The zero value leaves ownership untouched.
type Ownership struct {
	User  string
	Group string
}

// IsZero reports whether no owner is requested.
func (o Ownership) IsZero() bool {
	return o.User == "" && o.Group == ""
}

// Resolve looks the names up in the host's user database.
func (o Ownership) Resolve() (Owner, error) {
	return LookupOwner(o.User, o.Group)
}

func (o Ownership) String() string {
	return o.User + ":" + o.Group
}

// Matches reports whether st already has the wanted owner.
func (o Owner) Matches(st FileState) bool {
	return (o.UID < 0 || o.UID == st.UID) && (o.GID < 0 || o.GID == st.GID)
}

// WriteFileAtomic writes content to path durably: data is written to a
// temporary file in the same directory, fsynced, chowned and renamed over
// the target, so readers never see a partial file.
func WriteFileAtomic(path string, content []byte, mode fs.FileMode, owner Owner) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithStaticPermissions(mode))
	if err != nil {
		return fmt.Errorf("create pending file for %s: %w", path, err)
	}
	defer pendingFile.Cleanup()

	if _, err := pendingFile.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if owner.UID >= 0 || owner.GID >= 0 {
		if err := pendingFile.Chown(owner.UID, owner.GID); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// EnsureAttributes fixes mode and ownership of an existing path in place.
func EnsureAttributes(path string, mode fs.FileMode, owner Owner) error {
	if err := os.Chmod(path, mode); err != nil {
		return err
	}
	if owner.UID >= 0 || owner.GID >= 0 {
		return os.Lchown(path, owner.UID, owner.GID)
	}
	return nil
}

// ContentEqual compares desired content with what StatFile found.
func (st FileState) ContentEqual(content []byte) bool {
	return st.Exists && !st.IsDir && bytes.Equal(st.Content, content)
}

// Rooted joins path under root. An empty or "/" root returns path unchanged.
func Rooted(root, path string) string {
	if root == "" || root == "/" {
		return path
	}
	return filepath.Join(root, path)
}
