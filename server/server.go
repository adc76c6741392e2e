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

package server

import (
	"context"

	"github.com/tachyonfs/tachyon/master"
)

type Config struct {
	MasterConfig master.Config `json:"master_config"`
}

// Server owns the master and exposes it to the HTTP surface.
type Server struct {
	master *master.Master
}

func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	m, err := master.NewMaster(ctx, &cfg.MasterConfig)
	if err != nil {
		return nil, err
	}
	m.Start()
	return &Server{master: m}, nil
}

func (s *Server) Close() {
	s.master.Close()
}
