package leveldb

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/nodskit/ndk"
)

var _ ndk.Dict = &Dict{}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "ndklevel")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestDictIDs(t *testing.T) {
	d, err := NewDict(tempDir(t), "city")
	if err != nil {
		t.Fatalf("getting dict: %v", err)
	}
	defer d.Close()

	austin, err := d.ID("city", "Austin")
	if err != nil {
		t.Fatalf("getting id: %v", err)
	}
	brillion, err := d.ID("city", "Brillion")
	if err != nil {
		t.Fatalf("getting id: %v", err)
	}
	if austin == brillion {
		t.Fatalf("distinct labels got the same id: %d", austin)
	}
	again, err := d.ID("city", "Austin")
	if err != nil {
		t.Fatalf("getting id again: %v", err)
	}
	if again != austin {
		t.Fatalf("same label got different ids: %d then %d", austin, again)
	}

	label, err := d.Label("city", austin)
	if err != nil {
		t.Fatalf("getting label: %v", err)
	}
	if label != "Austin" {
		t.Fatalf("expected Austin, got %s", label)
	}
	if _, err := d.Label("city", 99999); err == nil {
		t.Fatal("expected error for unmapped id")
	}
}

func TestDictCreatesSpacesOnDemand(t *testing.T) {
	d, err := NewDict(tempDir(t))
	if err != nil {
		t.Fatalf("getting dict: %v", err)
	}
	defer d.Close()

	id1, err := d.ID("city", "Austin")
	if err != nil {
		t.Fatalf("getting id: %v", err)
	}
	id2, err := d.ID("state", "TX")
	if err != nil {
		t.Fatalf("getting id: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("fresh spaces should allocate from the same base, got %d and %d", id1, id2)
	}
}

func TestDictPersistsAcrossReopen(t *testing.T) {
	dir := tempDir(t)
	d, err := NewDict(dir, "city")
	if err != nil {
		t.Fatalf("getting dict: %v", err)
	}
	austin, err := d.ID("city", "Austin")
	if err != nil {
		t.Fatalf("getting id: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	d, err = NewDict(dir, "city")
	if err != nil {
		t.Fatalf("reopening dict: %v", err)
	}
	defer d.Close()
	again, err := d.ID("city", "Austin")
	if err != nil {
		t.Fatalf("getting id after reopen: %v", err)
	}
	if again != austin {
		t.Fatalf("id changed across reopen: %d then %d", austin, again)
	}
	fresh, err := d.ID("city", "Brillion")
	if err != nil {
		t.Fatalf("getting new id after reopen: %v", err)
	}
	if fresh == austin {
		t.Fatal("allocation restarted and collided after reopen")
	}
}
