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
	"os/exec"
)

// CommandLauncher spawns a shell command detached from the master.
// Recomputation commands and the worker-restart hook go through this
// port; tests supply a recording implementation.
type CommandLauncher interface {
	Launch(ctx context.Context, command string) error
}

// ExecLauncher runs commands through the shell, fire and forget. The
// command string carries its own output redirection.
type ExecLauncher struct{}

func (ExecLauncher) Launch(ctx context.Context, command string) error {
	cmd := exec.Command("/bin/sh", "-c", command)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
