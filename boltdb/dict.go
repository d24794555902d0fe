// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package boltdb implements ndk.Dict using boltdb as the backing store, so
// categorical labels keep their integer codes across runs.
package boltdb

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
)

var _ ndk.Dict = &Dict{}

var idBucket = []byte("ids")
var labelBucket = []byte("labels")

// Dict stores the two way label/id mapping in a bolt file, one nested bucket
// pair per space.
type Dict struct {
	Db *bolt.DB

	smu    sync.RWMutex
	spaces map[string]struct{}
}

// NewDict opens (or creates) the bolt file at filename and ensures buckets
// for the given spaces exist. Further spaces are created on first use.
func NewDict(filename string, spaces ...string) (d *Dict, err error) {
	d = &Dict{
		spaces: make(map[string]struct{}),
	}
	d.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = d.Db.Update(func(tx *bolt.Tx) error {
		ib, err := tx.CreateBucketIfNotExists(idBucket)
		if err != nil {
			return errors.Wrap(err, "creating id bucket")
		}
		lb, err := tx.CreateBucketIfNotExists(labelBucket)
		if err != nil {
			return errors.Wrap(err, "creating label bucket")
		}
		for _, space := range spaces {
			if err := d.addSpace(ib, lb, space); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return d, nil
}

func (d *Dict) addSpace(ib, lb *bolt.Bucket, space string) error {
	if _, err := ib.CreateBucketIfNotExists([]byte(space)); err != nil {
		return errors.Wrap(err, "adding "+space+" to id bucket")
	}
	if _, err := lb.CreateBucketIfNotExists([]byte(space)); err != nil {
		return errors.Wrap(err, "adding "+space+" to label bucket")
	}
	d.smu.Lock()
	d.spaces[space] = struct{}{}
	d.smu.Unlock()
	return nil
}

func (d *Dict) ensureSpace(space string) error {
	d.smu.RLock()
	_, ok := d.spaces[space]
	d.smu.RUnlock()
	if ok {
		return nil
	}
	return d.Db.Update(func(tx *bolt.Tx) error {
		return d.addSpace(tx.Bucket(idBucket), tx.Bucket(labelBucket), space)
	})
}

// ID maps label to a stable integer id within space, allocating a new
// monotonic id if the label has not been seen before.
func (d *Dict) ID(space, label string) (id int64, err error) {
	if err := d.ensureSpace(space); err != nil {
		return 0, errors.Wrap(err, "ensuring space")
	}
	key := []byte(label)

	var ret []byte
	err = d.Db.View(func(tx *bolt.Tx) error {
		lb := tx.Bucket(labelBucket).Bucket([]byte(space))
		ret = lb.Get(key)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "reading label bucket")
	}
	if len(ret) == 8 {
		return int64(binary.BigEndian.Uint64(ret)), nil
	}

	// allocate a new id and map it in both directions
	err = d.Db.Batch(func(tx *bolt.Tx) error {
		ib := tx.Bucket(idBucket).Bucket([]byte(space))
		lb := tx.Bucket(labelBucket).Bucket([]byte(space))

		uid, err := ib.NextSequence()
		if err != nil {
			return err
		}
		id = int64(uid)
		keybytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keybytes, uid)
		if err := ib.Put(keybytes, key); err != nil {
			return errors.Wrap(err, "inserting into id bucket")
		}
		if err := lb.Put(key, keybytes); err != nil {
			return errors.Wrap(err, "inserting into label bucket")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Label returns the label previously mapped to id within space.
func (d *Dict) Label(space string, id int64) (label string, err error) {
	if err := d.ensureSpace(space); err != nil {
		return "", errors.Wrap(err, "ensuring space")
	}
	var ret []byte
	err = d.Db.View(func(tx *bolt.Tx) error {
		ib := tx.Bucket(idBucket).Bucket([]byte(space))
		idBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(idBytes, uint64(id))
		ret = ib.Get(idBytes)
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "reading id bucket")
	}
	if ret == nil {
		return "", errors.Errorf("no label mapped to id %d in space '%s'", id, space)
	}
	return string(ret), nil
}

// Close syncs and closes the underlying bolt db.
func (d *Dict) Close() error {
	if err := d.Db.Sync(); err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return d.Db.Close()
}
