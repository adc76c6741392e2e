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
	"context"
	"io"
	"os"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/tachyonfs/tachyon/master/lineage"
	"github.com/tachyonfs/tachyon/master/namespace"
)

type pendingRecord struct {
	typ     RecordType
	payload []byte
}

// replayFile streams records from path in order and applies them.
// Records between transaction markers are buffered and applied only on
// commit. With tolerateTail set (the log file), a torn record or an
// uncommitted transaction at the end of the file is discarded as an
// aborted write; otherwise (the checkpoint) both are fatal.
func (j *Journal) replayFile(ctx context.Context, path string, tolerateTail bool, tree *namespace.Tree, graph *lineage.Graph) error {
	span := trace.SpanFromContextSafe(ctx)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			span.Infof("journal file %s does not exist, nothing to replay", path)
			return nil
		}
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var pending []pendingRecord
	inTx := false

	for {
		typ, payload, err := readRecord(r)
		if err == io.EOF {
			if inTx {
				if !tolerateTail {
					return errors.New("journal: checkpoint ends inside a transaction")
				}
				span.Warnf("discarding uncommitted transaction of %d records at tail of %s", len(pending), path)
			}
			return nil
		}
		if err == errTornRecord && tolerateTail {
			span.Warnf("discarding torn record at tail of %s", path)
			return nil
		}
		if err != nil {
			return errors.Info(err, "replay of", path).Detail(err)
		}

		switch typ {
		case RecordTxBegin:
			if inTx {
				return errCorruptRecord
			}
			inTx = true
			pending = pending[:0]
		case RecordTxCommit:
			if !inTx {
				return errCorruptRecord
			}
			for _, rec := range pending {
				if err = j.applyRecord(ctx, rec.typ, rec.payload, tree, graph); err != nil {
					return err
				}
			}
			inTx = false
			pending = pending[:0]
		default:
			if inTx {
				pending = append(pending, pendingRecord{typ: typ, payload: payload})
				continue
			}
			if err = j.applyRecord(ctx, typ, payload, tree, graph); err != nil {
				return err
			}
		}
	}
}
