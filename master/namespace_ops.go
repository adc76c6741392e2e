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

package master

import (
	"context"
	"sort"
	"strconv"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	apierrors "github.com/tachyonfs/tachyon/errors"
	"github.com/tachyonfs/tachyon/master/namespace"
	"github.com/tachyonfs/tachyon/metrics"
	"github.com/tachyonfs/tachyon/proto"
)

// CreateFile makes a file or folder at path, creating missing parent
// folders when recursive.
func (m *Master) CreateFile(ctx context.Context, path string, directory, recursive bool) (int32, error) {
	span := trace.SpanFromContextSafe(ctx)

	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	id, err := m.createFileLocked(ctx, path, directory, recursive, -1, nil)
	if err != nil {
		span.Infof("create %s failed: %s", path, err)
		return 0, err
	}
	span.Infof("created %s as inode %d", path, id)
	return id, nil
}

func (m *Master) createFileLocked(ctx context.Context, path string, directory, recursive bool, columns int32, metadata []byte) (int32, error) {
	created, entries, err := m.tree.Create(path, directory, recursive, columns, metadata, nowMs())
	if err != nil {
		return 0, err
	}
	if created.IsFile() {
		m.applyListsLocked(created)
	}
	if err = m.journal.AppendInodes(entries...); err != nil {
		return 0, err
	}
	metrics.FilesCreated.Inc()
	return created.Id, nil
}

// applyListsLocked stamps a fresh file with its pin and cache flags
// from the configured prefix lists.
func (m *Master) applyListsLocked(file *namespace.Inode) {
	path := m.tree.Path(file)
	if m.pinList.InList(path) {
		file.Pin = true
		m.idPinList[file.Id] = struct{}{}
	}
	if m.whiteList.InList(path) {
		file.Cache = true
	}
}

// CreateRawTable makes a raw table with its COL_i child folders in one
// journal transaction.
func (m *Master) CreateRawTable(ctx context.Context, path string, columns int32, metadata []byte) (int32, error) {
	span := trace.SpanFromContextSafe(ctx)

	if columns <= 0 || columns >= m.cfg.MaxColumns {
		span.Infof("create raw table %s rejected: %d columns", path, columns)
		return 0, apierrors.ErrTableColumn
	}

	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	table, entries, err := m.tree.Create(path, true, true, columns, metadata, nowMs())
	if err != nil {
		return 0, err
	}
	for k := int32(0); k < columns; k++ {
		colPath := path + namespace.Separator + namespace.ColumnPrefix + strconv.Itoa(int(k))
		_, colEntries, err := m.tree.Create(colPath, true, false, -1, nil, nowMs())
		if err != nil {
			return 0, err
		}
		entries = append(entries, colEntries...)
	}
	if err = m.journal.AppendInodes(entries...); err != nil {
		return 0, err
	}
	metrics.FilesCreated.Add(float64(1 + columns))
	span.Infof("created raw table %s with %d columns as inode %d", path, columns, table.Id)
	return table.Id, nil
}

// Delete removes the entity at path and everything under it.
func (m *Master) Delete(ctx context.Context, path string) error {
	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	ino, err := m.tree.Resolve(path)
	if err != nil {
		return err
	}
	if ino == nil {
		return apierrors.ErrFileDoesNotExist
	}
	return m.deleteLocked(ctx, ino.Id)
}

// DeleteId removes an inode by id; a missing id is a no-op.
func (m *Master) DeleteId(ctx context.Context, id int32) error {
	m.nsLock.Lock()
	defer m.nsLock.Unlock()
	return m.deleteLocked(ctx, id)
}

func (m *Master) deleteLocked(ctx context.Context, id int32) error {
	entries, removed := m.tree.Delete(id)
	if len(removed) == 0 {
		return nil
	}
	for _, tombstone := range removed {
		if tombstone.IsFile() {
			delete(m.idPinList, -tombstone.Id)
		}
	}
	if err := m.journal.AppendInodes(entries...); err != nil {
		return err
	}
	metrics.FilesDeleted.Add(float64(len(removed)))
	trace.SpanFromContextSafe(ctx).Infof("deleted inode %d and %d descendants", id, len(removed)-1)
	return nil
}

// Rename moves a single entity from src to dst.
func (m *Master) Rename(ctx context.Context, src, dst string) error {
	span := trace.SpanFromContextSafe(ctx)

	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	entries, err := m.tree.Rename(src, dst)
	if err != nil {
		span.Infof("rename %s -> %s failed: %s", src, dst, err)
		return err
	}
	return m.journal.AppendInodes(entries...)
}

func (m *Master) GetFileId(ctx context.Context, path string) (int32, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()

	ino, err := m.tree.Resolve(path)
	if err != nil {
		return -1, err
	}
	if ino == nil {
		return -1, nil
	}
	return ino.Id, nil
}

func (m *Master) GetRawTableId(ctx context.Context, path string) (int32, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.tree.RawTableId(path)
}

func (m *Master) GetFileInfo(ctx context.Context, id int32) (*proto.FileInfo, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.fileInfoLocked(id)
}

func (m *Master) GetFileInfoByPath(ctx context.Context, path string) (*proto.FileInfo, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()

	ino, err := m.tree.Resolve(path)
	if err != nil {
		return nil, err
	}
	if ino == nil {
		return nil, apierrors.ErrFileDoesNotExist
	}
	return m.fileInfoLocked(ino.Id)
}

func (m *Master) fileInfoLocked(id int32) (*proto.FileInfo, error) {
	ino := m.tree.Get(id)
	if ino == nil {
		return nil, apierrors.ErrFileDoesNotExist
	}
	info := &proto.FileInfo{
		Id:             ino.Id,
		Name:           ino.Name,
		Path:           m.tree.Path(ino),
		CreationTimeMs: ino.CreationTimeMs,
		Ready:          true,
		Folder:         ino.IsDirectory(),
		DependencyId:   -1,
	}
	if ino.IsFile() {
		info.SizeBytes = ino.Length
		info.InMemory = ino.InMemory()
		info.Ready = ino.Ready
		info.CheckpointPath = ino.CheckpointPath
		info.NeedPin = ino.Pin
		info.NeedCache = ino.Cache
		info.DependencyId = ino.DependencyId
	}
	return info, nil
}

// GetFilesInfo projects every direct child of path.
func (m *Master) GetFilesInfo(ctx context.Context, path string) ([]*proto.FileInfo, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()

	ino, err := m.tree.Resolve(path)
	if err != nil {
		return nil, err
	}
	if ino == nil {
		return nil, apierrors.ErrFileDoesNotExist
	}
	if ino.IsFile() {
		info, err := m.fileInfoLocked(ino.Id)
		if err != nil {
			return nil, err
		}
		return []*proto.FileInfo{info}, nil
	}
	ret := make([]*proto.FileInfo, 0, len(ino.Children))
	for _, childId := range ino.ChildrenIds() {
		info, err := m.fileInfoLocked(childId)
		if err != nil {
			return nil, err
		}
		ret = append(ret, info)
	}
	return ret, nil
}

func (m *Master) GetRawTableInfo(ctx context.Context, id int32) (*proto.RawTableInfo, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.rawTableInfoLocked(id)
}

func (m *Master) GetRawTableInfoByPath(ctx context.Context, path string) (*proto.RawTableInfo, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()

	ino, err := m.tree.Resolve(path)
	if err != nil {
		return nil, err
	}
	if ino == nil {
		return nil, apierrors.ErrTableDoesNotExist
	}
	return m.rawTableInfoLocked(ino.Id)
}

func (m *Master) rawTableInfoLocked(id int32) (*proto.RawTableInfo, error) {
	ino := m.tree.Get(id)
	if ino == nil || !ino.IsRawTable() {
		return nil, apierrors.ErrTableDoesNotExist
	}
	return &proto.RawTableInfo{
		Id:       ino.Id,
		Name:     ino.Name,
		Path:     m.tree.Path(ino),
		Columns:  ino.Columns,
		Metadata: ino.Metadata,
	}, nil
}

func (m *Master) GetFileLocations(ctx context.Context, id int32) ([]proto.NetAddress, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.fileLocationsLocked(id)
}

func (m *Master) GetFileLocationsByPath(ctx context.Context, path string) ([]proto.NetAddress, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()

	ino, err := m.tree.Resolve(path)
	if err != nil {
		return nil, err
	}
	if ino == nil {
		return nil, apierrors.ErrFileDoesNotExist
	}
	return m.fileLocationsLocked(ino.Id)
}

func (m *Master) fileLocationsLocked(id int32) ([]proto.NetAddress, error) {
	ino := m.tree.Get(id)
	if ino == nil || !ino.IsFile() {
		return nil, apierrors.ErrFileDoesNotExist
	}
	return ino.LocationList(), nil
}

func (m *Master) ListFiles(ctx context.Context, path string, recursive bool) ([]int32, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.tree.ListFiles(path, recursive)
}

func (m *Master) Ls(ctx context.Context, path string, recursive bool) ([]string, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.tree.Ls(path, recursive)
}

func (m *Master) GetNumberOfFiles(ctx context.Context, path string) (int, error) {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.tree.NumberOfFiles(path)
}

func (m *Master) GetInMemoryFiles(ctx context.Context) []string {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()
	return m.tree.InMemoryFiles()
}

// UnpinFile drops the pin flag so workers may evict the file.
func (m *Master) UnpinFile(ctx context.Context, fileId int32) error {
	m.nsLock.Lock()
	defer m.nsLock.Unlock()

	ino := m.tree.Get(fileId)
	if ino == nil || !ino.IsFile() {
		return apierrors.ErrFileDoesNotExist
	}
	ino.Pin = false
	delete(m.idPinList, fileId)
	return m.journal.AppendInodes(ino)
}

func (m *Master) GetPinList(ctx context.Context) []string {
	return m.pinList.List()
}

func (m *Master) GetWhiteList(ctx context.Context) []string {
	return m.whiteList.List()
}

func (m *Master) GetPinIdList(ctx context.Context) []int32 {
	m.nsLock.RLock()
	defer m.nsLock.RUnlock()

	ret := make([]int32, 0, len(m.idPinList))
	for id := range m.idPinList {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}
