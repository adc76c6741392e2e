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

package journal

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/fxamacker/cbor/v2"
	"github.com/tachyonfs/tachyon/master/lineage"
	"github.com/tachyonfs/tachyon/master/namespace"
	"github.com/tachyonfs/tachyon/metrics"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	LogFile        string `json:"log_file"`
	CheckpointFile string `json:"checkpoint_file"`
}

// Journal is the master's persistence: an append-and-flush write-ahead
// log plus a checkpoint image that truncates it. Appends are
// internally synchronized and safe to call while holding the namespace
// or dependency locks.
type Journal struct {
	cfg *Config

	writer *writer
	sf     singleflight.Group
}

func NewJournal(cfg *Config) *Journal {
	return &Journal{cfg: cfg, writer: newWriter(cfg.LogFile)}
}

// Recover replays the checkpoint then the log into tree and graph.
// Checkpoint corruption is fatal; a torn transaction at the log tail
// is discarded as aborted.
func (j *Journal) Recover(ctx context.Context, tree *namespace.Tree, graph *lineage.Graph) error {
	span := trace.SpanFromContextSafe(ctx)

	if err := j.replayFile(ctx, j.cfg.CheckpointFile, false, tree, graph); err != nil {
		return err
	}
	if err := j.replayFile(ctx, j.cfg.LogFile, true, tree, graph); err != nil {
		return err
	}
	span.Infof("recovery done: %d inodes, %d dependencies, inode counter %d",
		tree.Len(), graph.Len(), tree.InodeCounter())
	return nil
}

// Start opens the log writer. Call after recovery and the initial
// checkpoint.
func (j *Journal) Start() error {
	return j.writer.open()
}

func (j *Journal) Close() error {
	return j.writer.close()
}

// AppendInodes logs full inode states. More than one record is framed
// as a transaction so replay applies them atomically.
func (j *Journal) AppendInodes(inodes ...*namespace.Inode) error {
	entries := make([]entry, 0, len(inodes))
	for _, ino := range inodes {
		entries = append(entries, entry{typ: inodeRecordType(ino), payload: ino})
	}
	return j.append(entries)
}

func (j *Journal) AppendDependency(dep *lineage.Dependency) error {
	return j.append([]entry{{typ: RecordDependency, payload: dep}})
}

// AppendInodesAndDependency logs the child inodes of a new dependency
// together with the dependency record in one transaction.
func (j *Journal) AppendInodesAndDependency(inodes []*namespace.Inode, dep *lineage.Dependency) error {
	entries := make([]entry, 0, len(inodes)+1)
	for _, ino := range inodes {
		entries = append(entries, entry{typ: inodeRecordType(ino), payload: ino})
	}
	entries = append(entries, entry{typ: RecordDependency, payload: dep})
	return j.append(entries)
}

func (j *Journal) append(entries []entry) error {
	if err := j.writer.append(entries); err != nil {
		return err
	}
	metrics.JournalRecords.Add(float64(len(entries)))
	return nil
}

// Checkpoint writes a fresh image (inodes in BFS order, then all
// dependencies, then the counter record) to a temporary file, renames
// it over the checkpoint and truncates the log. Concurrent calls
// collapse into one write.
func (j *Journal) Checkpoint(ctx context.Context, inodes []*namespace.Inode, deps []*lineage.Dependency, inodeCounter, dependencyCounter int32) error {
	_, err, _ := j.sf.Do("checkpoint", func() (interface{}, error) {
		return nil, j.writeCheckpoint(ctx, inodes, deps, inodeCounter, dependencyCounter)
	})
	return err
}

func (j *Journal) writeCheckpoint(ctx context.Context, inodes []*namespace.Inode, deps []*lineage.Dependency, inodeCounter, dependencyCounter int32) error {
	span := trace.SpanFromContextSafe(ctx)

	tmpPath := j.cfg.CheckpointFile + ".tmp"
	if err := os.MkdirAll(filepath.Dir(tmpPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, ino := range inodes {
		if err = writeEntry(f, entry{typ: inodeRecordType(ino), payload: ino}); err != nil {
			return err
		}
	}
	for _, dep := range deps {
		if err = writeEntry(f, entry{typ: RecordDependency, payload: dep}); err != nil {
			return err
		}
	}
	info := &CheckpointInfo{InodeCounter: inodeCounter, DependencyCounter: dependencyCounter}
	if err = writeEntry(f, entry{typ: RecordCheckpointInfo, payload: info}); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpPath, j.cfg.CheckpointFile); err != nil {
		return err
	}

	if err = j.writer.reset(); err != nil {
		return err
	}
	span.Infof("checkpoint written: %d inodes, %d dependencies", len(inodes), len(deps))
	return nil
}

func (j *Journal) applyRecord(ctx context.Context, typ RecordType, payload []byte, tree *namespace.Tree, graph *lineage.Graph) error {
	switch typ {
	case RecordInodeFile, RecordInodeFolder, RecordInodeRawTable:
		ino := &namespace.Inode{}
		if err := cbor.Unmarshal(payload, ino); err != nil {
			return err
		}
		tree.Install(ino)
	case RecordDependency:
		dep := &lineage.Dependency{}
		if err := cbor.Unmarshal(payload, dep); err != nil {
			return err
		}
		graph.Install(dep)
	case RecordCheckpointInfo:
		info := &CheckpointInfo{}
		if err := cbor.Unmarshal(payload, info); err != nil {
			return err
		}
		tree.EnsureCounterAtLeast(info.InodeCounter)
		graph.EnsureCounterAtLeast(info.DependencyCounter)
	default:
		return errCorruptRecord
	}
	return nil
}
