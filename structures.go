// This package manages the low-level, on-disk storage structures.

package fat32

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"encoding/binary"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

const (
	bootSectorSize = 512
)

var (
	defaultEncoding = binary.LittleEndian
)

// BootSector describes the main set of filesystem parameters (the BIOS
// Parameter Block plus the extended DOS 7.1 fields). It maps the first 512
// bytes of the volume, bit-exact.
type BootSector struct {
	// JumpBoot is the jump instruction to the boot code. The first byte is
	// 0xEB or 0xE9 on valid volumes.
	JumpBoot [3]byte

	// OemName: "MSWIN4.1" is the recommended setting, but formatting tools
	// routinely write their own name here. Informational only.
	OemName [8]byte

	// BytesPerSector is the count of bytes per sector. Legal values are 512,
	// 1024, 2048 and 4096; every offset computation in this package derives
	// from it.
	BytesPerSector uint16

	// SectorsPerCluster is the number of sectors per allocation unit. Must
	// be a power of two.
	SectorsPerCluster uint8

	// ReservedSectorCount is the number of sectors in the reserved region at
	// the start of the volume. The first FAT begins immediately after it.
	ReservedSectorCount uint16

	// NumFats is the count of FAT structures on the volume. Almost always 2.
	NumFats uint8

	// RootEntryCount is the count of 32-byte entries in the FAT12/FAT16 root
	// directory. Must be zero on FAT32 volumes; the root directory lives in
	// the cluster heap like any other directory.
	RootEntryCount uint16

	// TotalSectors16 is the old 16-bit total sector count. Zero on FAT32.
	TotalSectors16 uint16

	// Media is the media-type code. 0xF8 is standard for fixed media.
	Media uint8

	// FatSize16 is the 16-bit count of sectors occupied by one FAT12/FAT16
	// FAT. Zero on FAT32 volumes; see FatSize32.
	FatSize16 uint16

	// SectorsPerTrack and NumHeads are geometry values for media that have
	// them. Irrelevant for image files.
	SectorsPerTrack uint16
	NumHeads        uint16

	// HiddenSectors is the count of sectors preceding the partition. Zero
	// for unpartitioned media.
	HiddenSectors uint32

	// TotalSectors32 is the 32-bit total count of sectors on the volume.
	TotalSectors32 uint32

	// FatSize32 is the 32-bit count of sectors occupied by one FAT.
	FatSize32 uint32

	// ExtFlags: bits 0-3 select the active FAT when mirroring is disabled;
	// bit 7 indicates whether mirroring is disabled.
	ExtFlags uint16

	// FsVersion is the FAT32 version number. High byte is the major
	// revision, low byte the minor revision.
	FsVersion uint16

	// RootCluster is the cluster number of the first cluster of the root
	// directory. Usually 2.
	RootCluster uint32

	// FsInfoSector is the sector number of the FSINFO structure in the
	// reserved region. Usually 1.
	FsInfoSector uint16

	// BackupBootSector is the sector number of the boot-record copy in the
	// reserved region. Usually 6.
	BackupBootSector uint16

	// Reserved must be zero.
	Reserved [12]byte

	// DriveNumber is the INT 13h drive number (0x80 for hard disks).
	DriveNumber uint8

	// Reserved1 is used by Windows NT. Zero when formatted.
	Reserved1 uint8

	// BootSignature is the extended boot signature (0x29), indicating that
	// the following three fields are present.
	BootSignature uint8

	// VolumeId is the volume serial number, generated from the date and time
	// of formatting.
	VolumeId uint32

	// VolumeLabel matches the 11-byte volume-label directory entry in the
	// root directory, space-padded.
	VolumeLabel [11]byte

	// FilesystemType is the informational string "FAT32   ". It is not used
	// for filesystem-type determination.
	FilesystemType [8]byte

	// BootCode is the boot-strapping machine code.
	BootCode [420]byte

	// Signature is the boot-sector signature word (0xAA55). It is decoded
	// but not validated; an inconsistent image is navigated exactly as its
	// fields describe it.
	Signature uint16
}

// SectorSize returns the effective sector-size.
func (bs BootSector) SectorSize() uint32 {
	return uint32(bs.BytesPerSector)
}

// OemNameString returns the OEM name with the space padding removed.
func (bs BootSector) OemNameString() string {
	return asciiFromPadded(bs.OemName[:])
}

// VolumeLabelString returns the volume label with the space padding removed.
func (bs BootSector) VolumeLabelString() string {
	return asciiFromPadded(bs.VolumeLabel[:])
}

// Dump prints the main decoded BPB parameters. The jump instruction, the
// FAT12/FAT16-only fields, the CHS geometry, the hidden-sector count, the
// flag and version words, the drive number and the boot code are not
// printed.
func (bs BootSector) Dump() {
	fmt.Printf("Boot Sector\n")
	fmt.Printf("===========\n")
	fmt.Printf("\n")

	fmt.Printf("OemName: [%s]\n", bs.OemNameString())
	fmt.Printf("BytesPerSector: (%d)\n", bs.BytesPerSector)
	fmt.Printf("SectorsPerCluster: (%d)\n", bs.SectorsPerCluster)
	fmt.Printf("ReservedSectorCount: (%d)\n", bs.ReservedSectorCount)
	fmt.Printf("NumFats: (%d)\n", bs.NumFats)
	fmt.Printf("RootEntryCount: (%d)\n", bs.RootEntryCount)
	fmt.Printf("Media: (0x%02x)\n", bs.Media)
	fmt.Printf("TotalSectors32: (%d)\n", bs.TotalSectors32)
	fmt.Printf("FatSize32: (%d)\n", bs.FatSize32)
	fmt.Printf("RootCluster: (%d)\n", bs.RootCluster)
	fmt.Printf("FsInfoSector: (%d)\n", bs.FsInfoSector)
	fmt.Printf("BackupBootSector: (%d)\n", bs.BackupBootSector)
	fmt.Printf("VolumeId: (0x%08x)\n", bs.VolumeId)
	fmt.Printf("VolumeLabel: [%s]\n", bs.VolumeLabelString())
	fmt.Printf("FilesystemType: [%s]\n", asciiFromPadded(bs.FilesystemType[:]))
	fmt.Printf("Signature: (0x%04x)\n", bs.Signature)
	fmt.Printf("\n")
}

// String returns a description of the boot sector.
func (bs BootSector) String() string {
	return fmt.Sprintf("BootSector<OEM=[%s] LABEL=[%s] SECTOR-SIZE=(%d) ROOT-CLUSTER=(%d)>", bs.OemNameString(), bs.VolumeLabelString(), bs.BytesPerSector, bs.RootCluster)
}

// MappedCluster represents one cluster entry in the FAT. Entries are 32 bits
// wide on disk but only the low 28 bits carry the cluster value.
type MappedCluster uint32

// IsBad indicates that this cluster has been marked as having one or more
// bad sectors.
func (mc MappedCluster) IsBad() bool {
	return mc == 0x0ffffff7
}

// IsLast indicates that no more clusters follow the cluster that led to this
// entry.
func (mc MappedCluster) IsLast() bool {
	return mc >= 0x0ffffff8
}

// IsFree indicates an unallocated cluster.
func (mc MappedCluster) IsFree() bool {
	return mc == 0
}

// Fat32Reader knows where to find the statically-located structures and how
// to parse them, and how to resolve clusters and chains of clusters. It also
// performs the positioned writes that directory mutations need, so the
// backing stream must be opened read-write if mutations will be applied.
type Fat32Reader struct {
	rws io.ReadWriteSeeker

	bootSector BootSector
}

// NewFat32Reader returns a new instance of Fat32Reader.
func NewFat32Reader(rws io.ReadWriteSeeker) *Fat32Reader {
	return &Fat32Reader{
		rws: rws,
	}
}

// Parse loads the boot sector. This is always a small read (does not scale
// with size). The decode is purely structural; nothing is validated.
func (fr *Fat32Reader) Parse() (err error) {
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

	_, err = fr.rws.Seek(0, os.SEEK_SET)
	log.PanicIf(err)

	raw := make([]byte, bootSectorSize)

	_, err = io.ReadFull(fr.rws, raw)
	log.PanicIf(err)

	err = restruct.Unpack(raw, defaultEncoding, &fr.bootSector)
	log.PanicIf(err)

	return nil
}

// BootSector returns the decoded boot-sector struct.
func (fr *Fat32Reader) BootSector() BootSector {
	return fr.bootSector
}

// SectorSize is the sector-size from the boot sector.
func (fr *Fat32Reader) SectorSize() uint32 {
	return fr.bootSector.SectorSize()
}

// RootCluster is the first cluster of the root directory.
func (fr *Fat32Reader) RootCluster() uint32 {
	return fr.bootSector.RootCluster
}

// ClusterOffset maps a cluster number to the byte offset of its first sector
// in the data region. Cluster 0 is not a valid data cluster; directory
// entries use it to mean "root", so it is rewritten to the root cluster
// before the offset is computed.
//
// The data region is addressed with a one-sector stride per cluster, which
// holds only for one-sector-per-cluster volumes. Chains are followed at the
// same stride (see WriteFromClusterChain).
func (fr *Fat32Reader) ClusterOffset(clusterNumber uint32) int64 {
	if clusterNumber == 0 {
		clusterNumber = fr.bootSector.RootCluster
	}

	sectorSize := int64(fr.bootSector.BytesPerSector)

	reservedRegionSize := int64(fr.bootSector.ReservedSectorCount) * sectorSize
	fatRegionSize := int64(fr.bootSector.NumFats) * int64(fr.bootSector.FatSize32) * sectorSize

	return int64(clusterNumber-2)*sectorSize + reservedRegionSize + fatRegionSize
}

// FatEntryOffset maps a cluster number to the byte offset of its 32-bit
// entry in the first FAT.
func (fr *Fat32Reader) FatEntryOffset(clusterNumber uint32) int64 {
	return int64(fr.bootSector.ReservedSectorCount)*int64(fr.bootSector.BytesPerSector) + int64(clusterNumber)*4
}

// NextCluster reads the FAT entry for the given cluster and returns the
// cluster that follows it in the chain. The raw 32-bit value is masked to
// its low 28 bits; check IsLast on the result before following it.
func (fr *Fat32Reader) NextCluster(clusterNumber uint32) (next MappedCluster, err error) {
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

	_, err = fr.rws.Seek(fr.FatEntryOffset(clusterNumber), os.SEEK_SET)
	log.PanicIf(err)

	raw := uint32(0)
	err = binary.Read(fr.rws, defaultEncoding, &raw)
	log.PanicIf(err)

	return MappedCluster(raw & 0x0fffffff), nil
}

// ReadAt fills the given buffer from the given absolute byte offset.
func (fr *Fat32Reader) ReadAt(offset int64, buffer []byte) (err error) {
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

	_, err = fr.rws.Seek(offset, os.SEEK_SET)
	log.PanicIf(err)

	_, err = io.ReadFull(fr.rws, buffer)
	log.PanicIf(err)

	return nil
}

// WriteAt writes the given buffer at the given absolute byte offset.
func (fr *Fat32Reader) WriteAt(offset int64, buffer []byte) (err error) {
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

	_, err = fr.rws.Seek(offset, os.SEEK_SET)
	log.PanicIf(err)

	_, err = fr.rws.Write(buffer)
	log.PanicIf(err)

	return nil
}

// ReadSector returns the sector-sized block at the first sector of the given
// cluster.
func (fr *Fat32Reader) ReadSector(clusterNumber uint32) (data []byte, err error) {
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

	data = make([]byte, fr.SectorSize())

	err = fr.ReadAt(fr.ClusterOffset(clusterNumber), data)
	log.PanicIf(err)

	return data, nil
}
