package fat32

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

func getTestNavigator() (fr *Fat32Reader, fn *Fat32Navigator) {
	_, fr = getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	fn, err = NewFat32Navigator(fr, fr.RootCluster())
	log.PanicIf(err)

	return fr, fn
}

func TestFat32Navigator_Load(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	fr, fn := getTestNavigator()

	if fn.LoadedAt() != fr.ClusterOffset(fr.RootCluster()) {
		t.Fatalf("Load offset not correct: (%d)", fn.LoadedAt())
	}

	entries := fn.Entries()

	if string(entries[1].Name[:]) != "FOO     TXT" {
		t.Fatalf("Entry (1) name not correct: [%s]", entries[1].Name[:])
	} else if entries[1].Attributes != AttributeArchive {
		t.Fatalf("Entry (1) attributes not correct: (0x%02x)", uint8(entries[1].Attributes))
	} else if entries[1].FirstClusterLow != 3 {
		t.Fatalf("Entry (1) first-cluster not correct: (%d)", entries[1].FirstClusterLow)
	} else if entries[1].FileSize != 100 {
		t.Fatalf("Entry (1) file-size not correct: (%d)", entries[1].FileSize)
	}

	if entries[2].Attributes.IsDirectory() != true {
		t.Fatalf("Entry (2) should be a directory.")
	}

	if entries[5].IsTerminator() != true {
		t.Fatalf("Entry (5) should be a terminator slot.")
	}
}

func TestFat32Navigator_Find(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	_, fn := getTestNavigator()

	i, de, err := fn.Find("foo.txt")
	log.PanicIf(err)

	if i != 1 {
		t.Fatalf("Match index not correct: (%d)", i)
	} else if de.FileSize != 100 {
		t.Fatalf("Matched entry not correct: %s", de)
	}

	_, _, err = fn.Find("MISSING.TXT")
	if err != ErrNotFound {
		t.Fatalf("Expected not-found for absent name: [%v]", err)
	}
}

func TestFat32Navigator_VisibleNames(t *testing.T) {
	_, fn := getTestNavigator()

	names := fn.VisibleNames()

	// The volume label, the hidden/system entry, and the empty slots are
	// all absent.

	expected := []string{
		"FOO     TXT",
		"SUBDIR     ",
		"FILE    BIN",
	}

	if len(names) != len(expected) {
		t.Fatalf("Visible-name count not correct: (%d)", len(names))
	}

	for i, name := range names {
		if string(name[:]) != expected[i] {
			t.Fatalf("Visible name (%d) not correct: [%s]", i, name[:])
		}
	}
}

func TestFat32Navigator_ChangeDirectory(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	fr, fn := getTestNavigator()

	err := fn.ChangeDirectory("SUBDIR")
	log.PanicIf(err)

	if fn.LoadedAt() != fr.ClusterOffset(5) {
		t.Fatalf("Subdirectory load offset not correct: (%d)", fn.LoadedAt())
	}

	_, _, err = fn.Find("BAR.TXT")
	log.PanicIf(err)
}

func TestFat32Navigator_ChangeDirectory_DotDotToRoot(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	fr, fn := getTestNavigator()

	err := fn.ChangeDirectory("SUBDIR")
	log.PanicIf(err)

	// The ".." entry of a first-level subdirectory stores first-cluster
	// zero, which reloads the root.

	err = fn.ChangeDirectory("..")
	log.PanicIf(err)

	if fn.LoadedAt() != fr.ClusterOffset(fr.RootCluster()) {
		t.Fatalf("Root reload offset not correct: (%d)", fn.LoadedAt())
	}

	_, _, err = fn.Find("FOO.TXT")
	log.PanicIf(err)
}

func TestFat32Navigator_ChangeDirectory_NotADirectory(t *testing.T) {
	_, fn := getTestNavigator()

	err := fn.ChangeDirectory("FOO.TXT")
	if err != ErrNotADirectory {
		t.Fatalf("Expected not-a-directory: [%v]", err)
	}

	err = fn.ChangeDirectory("NOSUCH")
	if err != ErrNotFound {
		t.Fatalf("Expected not-found: [%v]", err)
	}
}

func TestFat32Navigator_DeleteAndUndelete(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	fr, fn := getTestNavigator()

	err := fn.Delete("FOO.TXT")
	log.PanicIf(err)

	if _, _, err := fn.Find("FOO.TXT"); err != ErrNotFound {
		t.Fatalf("Deleted entry still resolvable: [%v]", err)
	}

	for _, name := range fn.VisibleNames() {
		if string(name[:]) == "FOO     TXT" {
			t.Fatalf("Deleted entry still visible.")
		}
	}

	// The tombstone was flushed: an independent navigator sees it.

	fn2, err := NewFat32Navigator(fr, fr.RootCluster())
	log.PanicIf(err)

	if fn2.Entries()[1].IsTombstone() != true {
		t.Fatalf("Tombstone not persisted.")
	}

	// Restore and verify both in-cache and on-disk.

	err = fn.Undelete("FOO.TXT")
	log.PanicIf(err)

	_, de, err := fn.Find("FOO.TXT")
	log.PanicIf(err)

	if string(de.Name[:]) != "FOO     TXT" {
		t.Fatalf("Restored name not correct: [%s]", de.Name[:])
	}

	fn3, err := NewFat32Navigator(fr, fr.RootCluster())
	log.PanicIf(err)

	fn3Entries := fn3.Entries()
	if string(fn3Entries[1].Name[:]) != "FOO     TXT" {
		t.Fatalf("Restored name not persisted.")
	}
}

func TestFat32Navigator_Undelete_NothingToRestore(t *testing.T) {
	_, fn := getTestNavigator()

	err := fn.Undelete("MISSING.TXT")
	if err != ErrNotFound {
		t.Fatalf("Expected not-found for absent original name: [%v]", err)
	}
}

func TestFat32Navigator_MutationWritesBackToLoadedDirectory(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	fr, fn := getTestNavigator()

	err := fn.ChangeDirectory("SUBDIR")
	log.PanicIf(err)

	err = fn.Delete("BAR.TXT")
	log.PanicIf(err)

	// The subdirectory sector carries the tombstone; the root sector is
	// untouched.

	subdir, err := NewFat32Navigator(fr, 5)
	log.PanicIf(err)

	if subdir.Entries()[2].IsTombstone() != true {
		t.Fatalf("Subdirectory tombstone not persisted.")
	}

	root, err := NewFat32Navigator(fr, fr.RootCluster())
	log.PanicIf(err)

	for i, de := range root.Entries() {
		if de.IsTombstone() == true {
			t.Fatalf("Root entry (%d) unexpectedly tombstoned.", i)
		}
	}
}

func TestFat32Navigator_UndeleteInLoadedDirectory(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	fr, fn := getTestNavigator()

	err := fn.ChangeDirectory("SUBDIR")
	log.PanicIf(err)

	err = fn.Delete("BAR.TXT")
	log.PanicIf(err)

	err = fn.Undelete("bar.txt")
	log.PanicIf(err)

	subdir, err := NewFat32Navigator(fr, 5)
	log.PanicIf(err)

	subdirEntries := subdir.Entries()
	if string(subdirEntries[2].Name[:]) != "BAR     TXT" {
		t.Fatalf("Restored subdirectory entry not persisted.")
	}
}

func TestDirectoryEntry_Predicates(t *testing.T) {
	var de DirectoryEntry

	if de.IsTerminator() != true {
		t.Fatalf("Zero entry should be a terminator.")
	}

	de.Name[0] = entryTombstoneMarker

	if de.IsTombstone() != true {
		t.Fatalf("Tombstone marker not detected.")
	}
}

func TestAttributes_IsListable(t *testing.T) {
	listable := []Attributes{AttributeReadOnly, AttributeDirectory, AttributeArchive}

	for _, a := range listable {
		if a.IsListable() != true {
			t.Fatalf("Attribute (0x%02x) should be listable.", uint8(a))
		}
	}

	notListable := []Attributes{
		AttributeVolumeId,
		AttributeHidden,
		AttributeHidden | AttributeSystem,
		AttributeReadOnly | AttributeHidden | AttributeSystem | AttributeVolumeId,
		AttributeDirectory | AttributeHidden,
		AttributeArchive | AttributeReadOnly,
	}

	for _, a := range notListable {
		if a.IsListable() != false {
			t.Fatalf("Attribute (0x%02x) should not be listable.", uint8(a))
		}
	}
}

func TestDirectoryEntry_Dump(t *testing.T) {
	_, fn := getTestNavigator()

	fn.Entries()[1].Dump()
}
