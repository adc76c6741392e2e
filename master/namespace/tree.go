// Copyright 2026 The TachyonFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package namespace

import (
	"strings"
	"sync/atomic"

	apierrors "github.com/tachyonfs/tachyon/errors"
)

const Separator = "/"

// Tree is the inode graph: id -> inode plus the root. It is a plain
// data structure; callers serialize access under the namespace lock.
// Mutating operations return the touched inodes in append order so the
// caller can journal them as one transaction.
type Tree struct {
	inodes       map[int32]*Inode
	root         *Inode
	inodeCounter int32
}

func NewTree(nowMs int64) *Tree {
	t := &Tree{inodes: make(map[int32]*Inode)}
	t.root = NewFolder("", t.NextId(), -1, nowMs)
	t.inodes[t.root.Id] = t.root
	return t
}

func (t *Tree) Root() *Inode {
	return t.root
}

func (t *Tree) Get(id int32) *Inode {
	return t.inodes[id]
}

func (t *Tree) Len() int {
	return len(t.inodes)
}

func (t *Tree) NextId() int32 {
	return atomic.AddInt32(&t.inodeCounter, 1)
}

func (t *Tree) InodeCounter() int32 {
	return atomic.LoadInt32(&t.inodeCounter)
}

// EnsureCounterAtLeast raises the id counter floor during recovery so
// an id is never reused across restarts.
func (t *Tree) EnsureCounterAtLeast(v int32) {
	for {
		cur := atomic.LoadInt32(&t.inodeCounter)
		if cur >= v || atomic.CompareAndSwapInt32(&t.inodeCounter, cur, v) {
			return
		}
	}
}

// Install places a recovered inode record. A positive id installs or
// replaces; a negative id removes the tombstoned inode.
func (t *Tree) Install(ino *Inode) {
	id := ino.Id
	if id < 0 {
		id = -id
	}
	t.EnsureCounterAtLeast(id)
	if ino.Tombstoned() {
		delete(t.inodes, id)
		return
	}
	t.inodes[id] = ino
	if id == RootId {
		t.root = ino
	}
}

// PathNames validates a path and splits it into components. The root
// path yields a single empty name.
func PathNames(path string) ([]string, error) {
	if path == "" || !strings.HasPrefix(path, Separator) {
		return nil, apierrors.ErrInvalidPath
	}
	if path == Separator {
		return []string{""}, nil
	}
	path = strings.TrimSuffix(path, Separator)
	names := strings.Split(path, Separator)
	for _, name := range names[1:] {
		if name == "" || strings.Contains(name, Separator) {
			return nil, apierrors.ErrInvalidPath
		}
	}
	return names, nil
}

// Resolve descends from the root by child name. It returns (nil, nil)
// when a component is absent, and ErrInvalidPath when a component
// other than the last is a file.
func (t *Tree) Resolve(path string) (*Inode, error) {
	names, err := PathNames(path)
	if err != nil {
		return nil, err
	}
	return t.resolveNames(names)
}

func (t *Tree) resolveNames(names []string) (*Inode, error) {
	if len(names) == 1 && names[0] == "" {
		return t.root, nil
	}
	cur := t.root
	for _, name := range names[1:] {
		if cur.IsFile() {
			return nil, apierrors.ErrInvalidPath
		}
		id, ok := cur.Child(name)
		if !ok {
			return nil, nil
		}
		cur = t.inodes[id]
		if cur == nil {
			return nil, nil
		}
	}
	return cur, nil
}

// Path rebuilds the absolute path of a live inode.
func (t *Tree) Path(ino *Inode) string {
	if ino.Id == RootId {
		return Separator
	}
	if ino.ParentId == RootId {
		return Separator + ino.Name
	}
	return t.Path(t.inodes[ino.ParentId]) + Separator + ino.Name
}

// Create makes a new inode at path. columns >= 0 makes a raw table
// regardless of directory; otherwise directory selects folder or file.
// Missing parent folders are created when recursive. The returned
// journal slice holds (parent, child) pairs in creation order.
func (t *Tree) Create(path string, directory, recursive bool, columns int32, metadata []byte, nowMs int64) (*Inode, []*Inode, error) {
	names, err := PathNames(path)
	if err != nil {
		return nil, nil, err
	}
	existing, err := t.resolveNames(names)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, apierrors.ErrFileAlreadyExists
	}

	var journal []*Inode
	name := names[len(names)-1]
	folderNames := names[:len(names)-1]
	parent, err := t.resolveNames(folderNames)
	if err != nil {
		return nil, nil, err
	}
	if parent == nil {
		if !recursive {
			return nil, nil, apierrors.ErrInvalidPath
		}
		folderPath := Separator + strings.Join(folderNames[1:], Separator)
		created, entries, err := t.Create(folderPath, true, true, -1, nil, nowMs)
		if err != nil {
			return nil, nil, err
		}
		journal = append(journal, entries...)
		parent = created
	} else if parent.IsFile() {
		return nil, nil, apierrors.ErrInvalidPath
	}

	var ret *Inode
	switch {
	case columns >= 0:
		ret = NewRawTable(name, t.NextId(), parent.Id, columns, metadata, nowMs)
	case directory:
		ret = NewFolder(name, t.NextId(), parent.Id, nowMs)
	default:
		ret = NewFile(name, t.NextId(), parent.Id, nowMs)
	}

	t.inodes[ret.Id] = ret
	parent.AddChild(ret.Name, ret.Id)
	journal = append(journal, parent, ret)
	return ret, journal, nil
}

// Delete removes the inode with id, children first. A missing id is a
// no-op and the root is never deleted. Removed inodes come back
// tombstoned; the journal slice holds (tombstone, parent) pairs.
func (t *Tree) Delete(id int32) (journal []*Inode, removed []*Inode) {
	ino := t.inodes[id]
	if ino == nil || ino.Id == RootId {
		return nil, nil
	}

	if ino.IsDirectory() {
		for _, childId := range ino.ChildrenIds() {
			subJournal, subRemoved := t.Delete(childId)
			journal = append(journal, subJournal...)
			removed = append(removed, subRemoved...)
		}
	}

	parent := t.inodes[ino.ParentId]
	parent.RemoveChild(ino.Name)
	delete(t.inodes, ino.Id)
	ino.Reverse()
	journal = append(journal, ino, parent)
	removed = append(removed, ino)
	return journal, removed
}

// Rename moves a single entity to dst. The journal slice holds the old
// parent, the new parent and the renamed inode.
func (t *Tree) Rename(src, dst string) ([]*Inode, error) {
	ino, err := t.Resolve(src)
	if err != nil {
		return nil, err
	}
	if ino == nil {
		return nil, apierrors.ErrFileDoesNotExist
	}
	if ino.Id == RootId {
		return nil, apierrors.ErrInvalidPath
	}
	existing, err := t.Resolve(dst)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierrors.ErrFileAlreadyExists
	}

	dstNames, err := PathNames(dst)
	if err != nil {
		return nil, err
	}
	dstName := dstNames[len(dstNames)-1]
	dstParent, err := t.resolveNames(dstNames[:len(dstNames)-1])
	if err != nil {
		return nil, err
	}
	if dstParent == nil || dstParent.IsFile() {
		return nil, apierrors.ErrFileDoesNotExist
	}

	oldParent := t.inodes[ino.ParentId]
	oldParent.RemoveChild(ino.Name)
	ino.Name = dstName
	ino.ParentId = dstParent.Id
	dstParent.AddChild(ino.Name, ino.Id)
	return []*Inode{oldParent, dstParent, ino}, nil
}

// ListFiles returns the file ids under path, or the path's own id when
// it is a file. Recursive traversal is breadth first.
func (t *Tree) ListFiles(path string, recursive bool) ([]int32, error) {
	ino, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	if ino == nil {
		return nil, apierrors.ErrFileDoesNotExist
	}
	ret := []int32{}
	if ino.IsFile() {
		return append(ret, ino.Id), nil
	}
	queue := ino.ChildrenIds()
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		cur := t.inodes[id]
		if cur.IsDirectory() {
			if recursive {
				queue = append(queue, cur.ChildrenIds()...)
			}
			continue
		}
		ret = append(ret, id)
	}
	return ret, nil
}

// Ls returns the absolute paths under path, files and folders alike.
func (t *Tree) Ls(path string, recursive bool) ([]string, error) {
	ino, err := t.Resolve(path)
	if err != nil {
		return nil, err
	}
	if ino == nil {
		return nil, apierrors.ErrFileDoesNotExist
	}
	ret := []string{}
	if ino.IsFile() {
		return append(ret, t.Path(ino)), nil
	}
	queue := ino.ChildrenIds()
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		cur := t.inodes[id]
		ret = append(ret, t.Path(cur))
		if recursive && cur.IsDirectory() {
			queue = append(queue, cur.ChildrenIds()...)
		}
	}
	return ret, nil
}

// InMemoryFiles collects absolute paths of files with a live in-memory
// copy, breadth first from the root.
func (t *Tree) InMemoryFiles() []string {
	ret := []string{}
	queue := []*Inode{t.root}
	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]
		for _, id := range folder.ChildrenIds() {
			cur := t.inodes[id]
			if cur.IsDirectory() {
				queue = append(queue, cur)
			} else if cur.InMemory() {
				ret = append(ret, t.Path(cur))
			}
		}
	}
	return ret
}

// NumberOfFiles is 1 for a file and the child count for a folder.
func (t *Tree) NumberOfFiles(path string) (int, error) {
	ino, err := t.Resolve(path)
	if err != nil {
		return 0, err
	}
	if ino == nil {
		return 0, apierrors.ErrFileDoesNotExist
	}
	if ino.IsFile() {
		return 1, nil
	}
	return len(ino.Children), nil
}

// RawTableId resolves path to a raw table id, -1 when path is absent
// or not a raw table.
func (t *Tree) RawTableId(path string) (int32, error) {
	ino, err := t.Resolve(path)
	if err != nil {
		return -1, err
	}
	if ino == nil || !ino.IsRawTable() {
		return -1, nil
	}
	return ino.Id, nil
}

// BFSInodes returns every live inode, root first, in breadth-first
// order. Used to build a checkpoint image.
func (t *Tree) BFSInodes() []*Inode {
	ret := []*Inode{t.root}
	queue := []*Inode{t.root}
	for len(queue) > 0 {
		folder := queue[0]
		queue = queue[1:]
		for _, id := range folder.ChildrenIds() {
			cur := t.inodes[id]
			ret = append(ret, cur)
			if cur.IsDirectory() {
				queue = append(queue, cur)
			}
		}
	}
	return ret
}
