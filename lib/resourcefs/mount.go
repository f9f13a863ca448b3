// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resourcefs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/imageres/lib/resource"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted. It
	// is created if it does not exist.
	Mountpoint string

	// Image supplies the resources.
	Image *resource.Image

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, errors go to
	// stderr.
	Logger *slog.Logger
}

// Mount mounts the image's resources at the configured mountpoint.
// The caller must call Unmount on the returned Server when done. The
// tree is fixed at mount time; the image is immutable.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Image == nil {
		return nil, fmt.Errorf("image is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &rootNode{
		dirNode: dirNode{modified: options.Image.Timestamp()},
		tree:    buildTree(options.Image.List()),
		logger:  options.Logger,
	}

	// Content never changes, so the kernel may cache generously.
	timeout := time.Hour
	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &timeout,
		AttrTimeout:     &timeout,
		NegativeTimeout: &timeout,
		MountOptions: fuse.MountOptions{
			FsName:     "imageres",
			Name:       "imageres",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("resource filesystem mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

// rootNode is the filesystem root. It builds the whole tree when
// mounted.
type rootNode struct {
	dirNode
	tree   *node
	logger *slog.Logger
}

var _ gofuse.NodeOnAdder = (*rootNode)(nil)

func (r *rootNode) OnAdd(ctx context.Context) {
	r.populate(ctx, &r.Inode, r.tree, "")
}

func (r *rootNode) populate(ctx context.Context, parent *gofuse.Inode, tree *node, path string) {
	for _, name := range tree.names() {
		child := tree.children[name]
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		if child.isDirectory() {
			inode := parent.NewPersistentInode(ctx, &dirNode{modified: r.modified},
				gofuse.StableAttr{Mode: syscall.S_IFDIR})
			parent.AddChild(name, inode, true)
			r.populate(ctx, inode, child, childPath)
			continue
		}
		inode := parent.NewPersistentInode(ctx, &fileNode{
			entry:    child.entry,
			path:     childPath,
			modified: r.modified,
			logger:   r.logger,
		}, gofuse.StableAttr{Mode: syscall.S_IFREG})
		parent.AddChild(name, inode, true)
	}
}

// dirNode is a read-only directory.
type dirNode struct {
	gofuse.Inode
	modified time.Time
}

var _ gofuse.InodeEmbedder = (*dirNode)(nil)
var _ gofuse.NodeGetattrer = (*dirNode)(nil)

func (d *dirNode) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o555
	out.SetTimes(nil, &d.modified, &d.modified)
	return 0
}

// fileNode is one resource. An exception entry has no data and fails
// to open.
type fileNode struct {
	gofuse.Inode
	entry    *resource.Entry
	path     string
	modified time.Time
	logger   *slog.Logger
}

var _ gofuse.InodeEmbedder = (*fileNode)(nil)
var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)

func (f *fileNode) data() []byte {
	data, _ := f.entry.Blob(0)
	return data
}

func (f *fileNode) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(len(f.data()))
	out.Blocks = (out.Size + 511) / 512
	out.SetTimes(nil, &f.modified, &f.modified)
	return 0
}

func (f *fileNode) Open(_ context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	if f.entry.Kind() == resource.KindException {
		f.logger.Warn("opening resource that failed to read at build time",
			"path", f.path,
			"error", f.entry.Err(),
		)
		return nil, 0, syscall.EIO
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Read(_ context.Context, _ gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data := f.data()
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := min(off+int64(len(dest)), int64(len(data)))
	return fuse.ReadResultData(data[off:end]), 0
}
