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
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/tachyonfs/tachyon/master/namespace"
)

type RecordType uint8

const (
	RecordInodeFile RecordType = iota + 1
	RecordInodeFolder
	RecordInodeRawTable
	RecordDependency
	RecordCheckpointInfo
	RecordTxBegin
	RecordTxCommit
)

// CheckpointInfo closes a checkpoint image and carries the id counter
// floors to restore on recovery.
type CheckpointInfo struct {
	InodeCounter      int32 `json:"inode_counter"`
	DependencyCounter int32 `json:"dependency_counter"`
}

// On-disk framing: 4-byte big-endian payload length, 1-byte record
// type, 4-byte IEEE CRC32 of the payload, then the CBOR payload.
const recordHeaderSize = 4 + 1 + 4

// maxRecordSize guards replay against a corrupted length field.
const maxRecordSize = 64 << 20

var (
	errCorruptRecord = errors.New("journal: corrupt record")
	errTornRecord    = errors.New("journal: torn tail record")
)

func inodeRecordType(ino *namespace.Inode) RecordType {
	switch ino.Type {
	case namespace.TypeFolder:
		return RecordInodeFolder
	case namespace.TypeRawTable:
		return RecordInodeRawTable
	default:
		return RecordInodeFile
	}
}

func encodeRecord(typ RecordType, v interface{}) ([]byte, error) {
	var payload []byte
	if v != nil {
		var err error
		payload, err = cbor.Marshal(v)
		if err != nil {
			return nil, err
		}
	}
	buf := make([]byte, recordHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(payload)))
	buf[4] = byte(typ)
	binary.BigEndian.PutUint32(buf[5:9], crc32.ChecksumIEEE(payload))
	copy(buf[recordHeaderSize:], payload)
	return buf, nil
}

// readRecord reads one framed record. io.EOF means a clean end;
// errTornRecord means the file ends inside a record; errCorruptRecord
// means the payload fails its checksum or the length is impossible.
func readRecord(r *bufio.Reader) (RecordType, []byte, error) {
	header := make([]byte, recordHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, errTornRecord
	}
	length := binary.BigEndian.Uint32(header[0:4])
	if length > maxRecordSize {
		return 0, nil, errCorruptRecord
	}
	typ := RecordType(header[4])
	sum := binary.BigEndian.Uint32(header[5:9])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, errTornRecord
	}
	if crc32.ChecksumIEEE(payload) != sum {
		return 0, nil, errCorruptRecord
	}
	return typ, payload, nil
}
