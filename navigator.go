// This package supports enumerating and mutating the entries of a single
// directory.

package fat32

import (
	"fmt"
	"reflect"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

const (
	directoryEntryBytesCount = 32

	// A directory is cached one sector at a time and only its first sector
	// is ever visited, so the cache is a fixed sixteen entries.
	directoryEntryCount = 16
)

const (
	// entryTombstoneMarker in the first name byte marks a deleted entry
	// whose slot has not been reclaimed.
	entryTombstoneMarker = 0xe5

	// entryTerminatorMarker in the first name byte marks an entry that has
	// never been used.
	entryTerminatorMarker = 0x00
)

// Attributes decomposes the attribute byte of a directory entry.
type Attributes uint8

const (
	// AttributeReadOnly marks a read-only file.
	AttributeReadOnly Attributes = 0x01

	// AttributeHidden marks an entry that normal listings skip.
	AttributeHidden Attributes = 0x02

	// AttributeSystem marks an operating-system file.
	AttributeSystem Attributes = 0x04

	// AttributeVolumeId marks the volume-label entry of the root directory.
	AttributeVolumeId Attributes = 0x08

	// AttributeDirectory marks a subdirectory.
	AttributeDirectory Attributes = 0x10

	// AttributeArchive marks a file created or modified since the last
	// backup. This is the usual attribute of a regular file.
	AttributeArchive Attributes = 0x20
)

// IsReadOnly indicates a read-only file.
func (a Attributes) IsReadOnly() bool {
	return a&AttributeReadOnly > 0
}

// IsHidden indicates a hidden entry.
func (a Attributes) IsHidden() bool {
	return a&AttributeHidden > 0
}

// IsSystem indicates a system file.
func (a Attributes) IsSystem() bool {
	return a&AttributeSystem > 0
}

// IsVolumeId indicates the volume-label entry.
func (a Attributes) IsVolumeId() bool {
	return a&AttributeVolumeId > 0
}

// IsDirectory indicates a subdirectory.
func (a Attributes) IsDirectory() bool {
	return a&AttributeDirectory > 0
}

// IsArchive indicates the archive bit.
func (a Attributes) IsArchive() bool {
	return a&AttributeArchive > 0
}

// IsListable indicates an attribute byte that listings show: exactly a
// read-only file, a subdirectory, or an archive file. Combined attribute
// values (hidden files, system files, the volume label, LFN entries) are
// skipped.
func (a Attributes) IsListable() bool {
	return a == AttributeReadOnly || a == AttributeDirectory || a == AttributeArchive
}

// String returns a descriptive string.
func (a Attributes) String() string {
	return fmt.Sprintf("Attributes<RAW=(0x%02x) RO=[%v] HIDDEN=[%v] SYSTEM=[%v] VOLUME-ID=[%v] DIRECTORY=[%v] ARCHIVE=[%v]>", uint8(a), a.IsReadOnly(), a.IsHidden(), a.IsSystem(), a.IsVolumeId(), a.IsDirectory(), a.IsArchive())
}

// DirectoryEntry is one 32-byte short-name record of a directory.
type DirectoryEntry struct {
	// Name is the raw 11-byte 8.3 name field: eight bytes of basename and
	// three bytes of extension, space-padded and uppercased. The first byte
	// doubles as the tombstone/terminator marker.
	Name [11]byte

	// Attributes is the attribute byte.
	Attributes Attributes

	// NtReserved is reserved for Windows NT.
	NtReserved uint8

	// CreationTimeTenths, CreationTime, CreationDate and LastAccessDate are
	// decoded but never interpreted or maintained here.
	CreationTimeTenths uint8
	CreationTime       uint16
	CreationDate       uint16
	LastAccessDate     uint16

	// FirstClusterHigh is the high word of the entry's first cluster
	// number. It is decoded for display but never combined into the cluster
	// used for traversal (see DataCluster).
	FirstClusterHigh uint16

	// WriteTime and WriteDate are decoded but never maintained.
	WriteTime uint16
	WriteDate uint16

	// FirstClusterLow is the low word of the entry's first cluster number.
	FirstClusterLow uint16

	// FileSize is the file length in bytes. Zero for directories.
	FileSize uint32
}

// IsTombstone indicates that the entry has been soft-deleted.
func (de DirectoryEntry) IsTombstone() bool {
	return de.Name[0] == entryTombstoneMarker
}

// IsTerminator indicates an entry slot that has never been used.
func (de DirectoryEntry) IsTerminator() bool {
	return de.Name[0] == entryTerminatorMarker
}

// DataCluster is the cluster that the entry's data starts in. Only the low
// word is used, which caps traversal at cluster 65535. A stored value of
// zero means the root directory and is resolved by ClusterOffset.
func (de DirectoryEntry) DataCluster() uint32 {
	return uint32(de.FirstClusterLow)
}

// Dump prints the entry's name, attributes, first-cluster words and size.
// The reserved byte and the time and date fields are not printed.
func (de DirectoryEntry) Dump() {
	fmt.Printf("Directory Entry\n")
	fmt.Printf("===============\n")
	fmt.Printf("\n")

	fmt.Printf("Name: [%s]\n", DisplayShortName(de.Name))
	fmt.Printf("Attributes: (0x%02x)\n", uint8(de.Attributes))
	de.Attributes.DumpBareIndented("  ")
	fmt.Printf("FirstClusterHigh: (%d)\n", de.FirstClusterHigh)
	fmt.Printf("FirstClusterLow: (%d)\n", de.FirstClusterLow)
	fmt.Printf("FileSize: (%d)\n", de.FileSize)
	fmt.Printf("\n")
}

// DumpBareIndented prints the attribute flags with arbitrary indentation.
func (a Attributes) DumpBareIndented(indent string) {
	fmt.Printf("%sRaw Value: (%08b)\n", indent, uint8(a))
	fmt.Printf("%sIsReadOnly: [%v]\n", indent, a.IsReadOnly())
	fmt.Printf("%sIsHidden: [%v]\n", indent, a.IsHidden())
	fmt.Printf("%sIsSystem: [%v]\n", indent, a.IsSystem())
	fmt.Printf("%sIsVolumeId: [%v]\n", indent, a.IsVolumeId())
	fmt.Printf("%sIsDirectory: [%v]\n", indent, a.IsDirectory())
	fmt.Printf("%sIsArchive: [%v]\n", indent, a.IsArchive())
}

// String returns a descriptive string.
func (de DirectoryEntry) String() string {
	return fmt.Sprintf("DirectoryEntry<NAME=[%s] ATTRIBUTES=(0x%02x) FIRST-CLUSTER=(%d) SIZE=(%d)>", DisplayShortName(de.Name), uint8(de.Attributes), de.DataCluster(), de.FileSize)
}

func parseDirectoryEntry(directoryEntryData []byte) (de DirectoryEntry, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	err = restruct.Unpack(directoryEntryData, defaultEncoding, &de)
	log.PanicIf(err)

	return de, nil
}

func packDirectoryEntry(de DirectoryEntry) (directoryEntryData []byte, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	directoryEntryData, err = restruct.Pack(defaultEncoding, &de)
	log.PanicIf(err)

	return directoryEntryData, nil
}

// Fat32Navigator caches the sixteen directory entries of the first sector of
// one directory, remembers where on disk they came from so that mutations
// can be written back to the same place, and retains each entry's name as it
// looked at load time so that a tombstoned entry can be restored.
type Fat32Navigator struct {
	fr *Fat32Reader

	entries       [directoryEntryCount]DirectoryEntry
	loadedAt      int64
	originalNames [directoryEntryCount][shortNameLength]byte
}

// NewFat32Navigator returns a navigator positioned on the given directory
// cluster. Cluster 0 positions on the root directory.
func NewFat32Navigator(fr *Fat32Reader, clusterNumber uint32) (fn *Fat32Navigator, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	fn = &Fat32Navigator{
		fr: fr,
	}

	err = fn.load(clusterNumber)
	log.PanicIf(err)

	return fn, nil
}

// load replaces the cache with the sixteen entries at the first sector of
// the given cluster and re-captures the original-name table (slot i holds
// entry i's name as it was on disk at load time).
func (fn *Fat32Navigator) load(clusterNumber uint32) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	offset := fn.fr.ClusterOffset(clusterNumber)

	raw := make([]byte, directoryEntryCount*directoryEntryBytesCount)

	err = fn.fr.ReadAt(offset, raw)
	log.PanicIf(err)

	for i := 0; i < directoryEntryCount; i++ {
		de, err := parseDirectoryEntry(raw[i*directoryEntryBytesCount : (i+1)*directoryEntryBytesCount])
		log.PanicIf(err)

		fn.entries[i] = de
		fn.originalNames[i] = de.Name
	}

	fn.loadedAt = offset

	return nil
}

// Entries returns the cached entries.
func (fn *Fat32Navigator) Entries() [directoryEntryCount]DirectoryEntry {
	return fn.entries
}

// LoadedAt returns the byte offset the cache was populated from.
func (fn *Fat32Navigator) LoadedAt() int64 {
	return fn.loadedAt
}

// Find resolves a user-supplied 8.3 name against the cache and returns the
// index of the first matching entry. Tombstoned and terminator slots are
// not eligible.
func (fn *Fat32Navigator) Find(name string) (i int, de DirectoryEntry, err error) {
	for i, de := range fn.entries {
		if de.IsTombstone() == true || de.IsTerminator() == true {
			continue
		}

		if ShortNameMatches(name, de.Name) == true {
			return i, de, nil
		}
	}

	return -1, de, ErrNotFound
}

// VisibleNames returns the raw 11-byte names that a listing shows: entries
// whose attribute byte is exactly read-only, directory, or archive, and that
// are not tombstoned.
func (fn *Fat32Navigator) VisibleNames() (names [][shortNameLength]byte) {
	names = make([][shortNameLength]byte, 0, directoryEntryCount)

	for _, de := range fn.entries {
		if de.Attributes.IsListable() == false {
			continue
		}

		if de.IsTombstone() == true {
			continue
		}

		names = append(names, de.Name)
	}

	return names
}

// ChangeDirectory resolves the given name and reloads the cache from the
// matched subdirectory's first cluster. The attribute byte must be exactly
// the directory attribute; a stored first cluster of zero (the ".." entry of
// a first-level subdirectory) reloads the root.
func (fn *Fat32Navigator) ChangeDirectory(name string) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	_, de, err := fn.Find(name)
	if err != nil {
		return err
	}

	if de.Attributes != AttributeDirectory {
		return ErrNotADirectory
	}

	err = fn.load(de.DataCluster())
	log.PanicIf(err)

	return nil
}

// Delete tombstones the first entry matching the given name and flushes the
// cache. The entry keeps its slot, attributes, cluster and size; only the
// first name byte is overwritten.
func (fn *Fat32Navigator) Delete(name string) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	i, _, err := fn.Find(name)
	if err != nil {
		return err
	}

	fn.entries[i].Name[0] = entryTombstoneMarker

	err = fn.Flush()
	log.PanicIf(err)

	return nil
}

// Undelete restores the first name byte of every entry whose original name
// (as captured at load time) matches the given name, then flushes the cache.
// An entry that is not tombstoned is rewritten with the byte it already
// holds. Only entries with a listable attribute byte are considered.
// ErrNotFound is returned if no such entry matched.
func (fn *Fat32Navigator) Undelete(name string) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	restored := false

	for i := range fn.entries {
		if fn.entries[i].Attributes.IsListable() == false {
			continue
		}

		if ShortNameMatches(name, fn.originalNames[i]) == false {
			continue
		}

		fn.entries[i].Name[0] = fn.originalNames[i][0]
		restored = true
	}

	if restored == false {
		return ErrNotFound
	}

	err = fn.Flush()
	log.PanicIf(err)

	return nil
}

// Flush re-packs all sixteen cached entries and writes them back to the
// offset the cache was loaded from.
func (fn *Fat32Navigator) Flush() (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(err).Name(), err)
			}
		}
	}()

	raw := make([]byte, 0, directoryEntryCount*directoryEntryBytesCount)

	for i := 0; i < directoryEntryCount; i++ {
		entryData, err := packDirectoryEntry(fn.entries[i])
		log.PanicIf(err)

		raw = append(raw, entryData...)
	}

	err = fn.fr.WriteAt(fn.loadedAt, raw)
	log.PanicIf(err)

	return nil
}
