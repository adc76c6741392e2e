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
	"sync"
	"sync/atomic"
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/tachyonfs/tachyon/master/cluster"
	"github.com/tachyonfs/tachyon/master/journal"
	"github.com/tachyonfs/tachyon/master/lineage"
	"github.com/tachyonfs/tachyon/master/namespace"
	"github.com/tachyonfs/tachyon/proto"
)

type Config struct {
	Home                string           `json:"home"`
	WhiteList           string           `json:"whitelist"`
	PinList             string           `json:"pinlist"`
	MaxColumns          int32            `json:"max_columns"`
	ProactiveRecovery   bool             `json:"proactive_recovery"`
	HeartbeatIntervalMs int64            `json:"heartbeat_interval_ms"`
	Address             proto.NetAddress `json:"address"`

	JournalConfig journal.Config `json:"journal_config"`
	ClusterConfig cluster.Config `json:"cluster_config"`

	Launcher CommandLauncher `json:"-"`
}

// Master holds the authoritative file system metadata: the namespace
// tree, the dependency graph and the worker registry, with the journal
// recording every namespace mutation.
//
// Lock order: nsLock before depsLock; the cluster's own lock is never
// held while either is acquired.
type Master struct {
	cfg         *Config
	startTimeMs int64

	nsLock    sync.RWMutex
	tree      *namespace.Tree
	whiteList *namespace.PrefixList
	pinList   *namespace.PrefixList
	idPinList map[int32]struct{}

	depsLock sync.Mutex
	graph    *lineage.Graph

	cluster  *cluster.Cluster
	journal  *journal.Journal
	launcher CommandLauncher

	userCounter  int64
	rerunCounter int64

	done chan struct{}
	once sync.Once
}

func NewMaster(ctx context.Context, cfg *Config) (*Master, error) {
	span := trace.SpanFromContextSafe(ctx)
	initConfig(cfg)

	startTimeMs := time.Now().UnixMilli()
	m := &Master{
		cfg:         cfg,
		startTimeMs: startTimeMs,
		tree:        namespace.NewTree(startTimeMs),
		whiteList:   namespace.ParsePrefixList(cfg.WhiteList),
		pinList:     namespace.ParsePrefixList(cfg.PinList),
		idPinList:   make(map[int32]struct{}),
		graph:       lineage.NewGraph(),
		cluster:     cluster.NewCluster(startTimeMs, &cfg.ClusterConfig),
		journal:     journal.NewJournal(&cfg.JournalConfig),
		launcher:    cfg.Launcher,
		done:        make(chan struct{}),
	}
	if m.launcher == nil {
		m.launcher = ExecLauncher{}
	}

	if err := m.journal.Recover(ctx, m.tree, m.graph); err != nil {
		span.Errorf("journal recovery failed: %s", err)
		return nil, err
	}
	// Compact the recovered state right away; this also rebuilds the
	// pin id set from the pinned files found in the tree.
	if err := m.Checkpoint(ctx); err != nil {
		span.Errorf("initial checkpoint failed: %s", err)
		return nil, err
	}
	return m, nil
}

// Start launches the liveness monitor and the recomputation scheduler.
func (m *Master) Start() {
	go m.heartbeatLoop()
	go m.recomputeLoop()
}

func (m *Master) Close() {
	m.once.Do(func() {
		close(m.done)
		m.journal.Close()
	})
}

func (m *Master) StartTimeMs() int64 {
	return m.startTimeMs
}

func (m *Master) MasterAddress() proto.NetAddress {
	return m.cfg.Address
}

func (m *Master) GetNewUserId() int64 {
	return atomic.AddInt64(&m.userCounter, 1)
}

// Checkpoint writes a consolidated snapshot and truncates the log.
func (m *Master) Checkpoint(ctx context.Context) error {
	m.nsLock.Lock()
	defer m.nsLock.Unlock()
	m.depsLock.Lock()
	defer m.depsLock.Unlock()

	inodes := m.tree.BFSInodes()
	m.idPinList = make(map[int32]struct{})
	for _, ino := range inodes {
		if ino.IsFile() && ino.Pin {
			m.idPinList[ino.Id] = struct{}{}
		}
	}
	return m.journal.Checkpoint(ctx, inodes, m.graph.Dependencies(),
		m.tree.InodeCounter(), m.graph.DependencyCounter())
}

func initConfig(cfg *Config) {
	if cfg.MaxColumns == 0 {
		cfg.MaxColumns = 1000
	}
	if cfg.HeartbeatIntervalMs == 0 {
		cfg.HeartbeatIntervalMs = 1000
	}
	if cfg.ClusterConfig.WorkerTimeoutMs == 0 {
		cfg.ClusterConfig.WorkerTimeoutMs = 10 * 1000
	}
	if cfg.JournalConfig.LogFile == "" {
		cfg.JournalConfig.LogFile = cfg.Home + "/journal/log.data"
	}
	if cfg.JournalConfig.CheckpointFile == "" {
		cfg.JournalConfig.CheckpointFile = cfg.Home + "/journal/checkpoint.data"
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
