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

// Package leveldb implements ndk.Dict using leveldb as the backing store. It
// is interchangeable with the boltdb implementation.
package leveldb

import (
	"encoding/binary"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nodskit/ndk"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ ndk.Dict = &Dict{}

// Dict stores the two way label/id mapping in leveldb, a pair of dbs per
// space under one directory.
type Dict struct {
	lock    sync.RWMutex
	dirname string
	spaces  map[string]*spaceDict
}

// spaceDict holds one space's mappings.
type spaceDict struct {
	alloc    sync.Mutex
	idMap    *leveldb.DB
	labelMap *leveldb.DB
	curID    *uint64
}

type errorList []error

func (errs errorList) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

// NewDict gets a new Dict rooted at dirname, pre-opening the given spaces.
// Further spaces are opened on first use.
func NewDict(dirname string, spaces ...string) (d *Dict, err error) {
	d = &Dict{
		dirname: dirname,
		spaces:  make(map[string]*spaceDict),
	}
	for _, space := range spaces {
		sd, err := newSpaceDict(dirname, space)
		if err != nil {
			return nil, errors.Wrap(err, "making space dict")
		}
		d.spaces[space] = sd
	}
	return d, nil
}

func newSpaceDict(dirname, space string) (*spaceDict, error) {
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	var initialID uint64
	sd := &spaceDict{curID: &initialID}
	var err error
	sd.idMap, err = leveldb.OpenFile(dirname+"/"+space+"-id", &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname+"/"+space+"-id")
	}
	sd.labelMap, err = leveldb.OpenFile(dirname+"/"+space+"-label", &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname+"/"+space+"-label")
	}
	// resume the id sequence from what is already stored
	iter := sd.idMap.NewIterator(nil, nil)
	for iter.Next() {
		if id := binary.BigEndian.Uint64(iter.Key()); id > *sd.curID {
			atomic.StoreUint64(sd.curID, id)
		}
	}
	iter.Release()
	return sd, iter.Error()
}

func (d *Dict) getSpaceDict(space string) (*spaceDict, error) {
	d.lock.RLock()
	if sd, ok := d.spaces[space]; ok {
		d.lock.RUnlock()
		return sd, nil
	}
	d.lock.RUnlock()
	d.lock.Lock()
	defer d.lock.Unlock()
	if sd, ok := d.spaces[space]; ok {
		return sd, nil
	}
	sd, err := newSpaceDict(d.dirname, space)
	if err != nil {
		return nil, errors.Wrap(err, "creating new space dict")
	}
	d.spaces[space] = sd
	return sd, nil
}

// ID maps label to a stable integer id within space, allocating a new
// monotonic id if the label has not been seen before.
func (d *Dict) ID(space, label string) (int64, error) {
	sd, err := d.getSpaceDict(space)
	if err != nil {
		return 0, errors.Wrap(err, "getting space dict")
	}
	return sd.id(label)
}

func (sd *spaceDict) id(label string) (int64, error) {
	key := []byte(label)
	if data, err := sd.labelMap.Get(key, nil); err == nil {
		return int64(binary.BigEndian.Uint64(data)), nil
	} else if err != ldberrors.ErrNotFound {
		return 0, errors.Wrap(err, "fetching from labelMap")
	}

	sd.alloc.Lock()
	defer sd.alloc.Unlock()
	// re-check under the allocation lock
	if data, err := sd.labelMap.Get(key, nil); err == nil {
		return int64(binary.BigEndian.Uint64(data)), nil
	}
	id := atomic.AddUint64(sd.curID, 1)
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	if err := sd.idMap.Put(idBytes, key, nil); err != nil {
		return 0, errors.Wrap(err, "putting into idMap")
	}
	if err := sd.labelMap.Put(key, idBytes, nil); err != nil {
		return 0, errors.Wrap(err, "putting into labelMap")
	}
	return int64(id), nil
}

// Label returns the label previously mapped to id within space.
func (d *Dict) Label(space string, id int64) (string, error) {
	sd, err := d.getSpaceDict(space)
	if err != nil {
		return "", errors.Wrap(err, "getting space dict")
	}
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, uint64(id))
	data, err := sd.idMap.Get(idBytes, nil)
	if err != nil {
		return "", errors.Wrapf(err, "no label mapped to id %d in space '%s'", id, space)
	}
	return string(data), nil
}

// Close closes all of the underlying leveldb instances.
func (d *Dict) Close() error {
	errs := make(errorList, 0)
	for space, sd := range d.spaces {
		if err := sd.idMap.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "space %v: closing idMap", space))
		}
		if err := sd.labelMap.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "space %v: closing labelMap", space))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
