package fat32

import (
	"io"

	"encoding/binary"

	"github.com/xaionaro-go/bytesextra"
)

// The tests run against a synthetic one-sector-per-cluster FAT32 image built
// in memory. Geometry:
//
//	sector size 512, 32 reserved sectors, 2 FATs of 4 sectors each
//	FAT region at 0x4000, data region at 0x5000, root directory cluster 2
//
// Root directory:
//
//	TESTVOL     volume label (skipped by listings)
//	FOO.TXT     archive, cluster 3, 100 bytes of cycling lowercase letters
//	SUBDIR      directory, cluster 5
//	FILE.BIN    archive, clusters 6-7, 520 bytes
//	SECRET.SYS  hidden+system (skipped by listings)
//
// SUBDIR holds ".", ".." (first cluster 0 -> root) and BAR.TXT (cluster 4,
// "hello world").
const (
	testSectorSize     = 512
	testReservedCount  = 32
	testNumFats        = 2
	testFatSize        = 4
	testRootCluster    = 2
	testImageTotalSize = 32768

	testFatRegionOffset  = testReservedCount * testSectorSize
	testDataRegionOffset = testFatRegionOffset + testNumFats*testFatSize*testSectorSize
)

func testClusterOffset(clusterNumber uint32) int64 {
	return testDataRegionOffset + int64(clusterNumber-2)*testSectorSize
}

func putTestFatEntry(image []byte, clusterNumber, value uint32) {
	binary.LittleEndian.PutUint32(image[testFatRegionOffset+clusterNumber*4:], value)
}

func putTestDirectoryEntry(image []byte, offset int64, name string, attributes uint8, firstClusterLow uint16, fileSize uint32) {
	if len(name) != shortNameLength {
		panic("test directory-entry name must be exactly eleven bytes")
	}

	copy(image[offset:], name)
	image[offset+11] = attributes
	binary.LittleEndian.PutUint16(image[offset+26:], firstClusterLow)
	binary.LittleEndian.PutUint32(image[offset+28:], fileSize)
}

func buildTestImageBytes() []byte {
	image := make([]byte, testImageTotalSize)

	// Boot sector.

	copy(image[3:], "mkfs.fat")
	binary.LittleEndian.PutUint16(image[11:], testSectorSize)
	image[13] = 1
	binary.LittleEndian.PutUint16(image[14:], testReservedCount)
	image[16] = testNumFats
	binary.LittleEndian.PutUint16(image[17:], 0)
	image[21] = 0xf8
	binary.LittleEndian.PutUint32(image[32:], testImageTotalSize/testSectorSize)
	binary.LittleEndian.PutUint32(image[36:], testFatSize)
	binary.LittleEndian.PutUint32(image[44:], testRootCluster)
	binary.LittleEndian.PutUint16(image[48:], 1)
	binary.LittleEndian.PutUint16(image[50:], 6)
	image[66] = 0x29
	binary.LittleEndian.PutUint32(image[67:], 0x12345678)
	copy(image[71:], "TESTVOL    ")
	copy(image[82:], "FAT32   ")
	image[510] = 0x55
	image[511] = 0xaa

	// FAT.

	putTestFatEntry(image, 0, 0x0ffffff8)
	putTestFatEntry(image, 1, 0xffffffff)
	putTestFatEntry(image, 2, 0x0fffffff)
	putTestFatEntry(image, 3, 0x0ffffff8)
	putTestFatEntry(image, 4, 0x0ffffff8)
	putTestFatEntry(image, 5, 0x0ffffff8)
	putTestFatEntry(image, 6, 7)
	putTestFatEntry(image, 7, 0x0ffffff8)

	// Root directory (cluster 2).

	rootOffset := testClusterOffset(testRootCluster)

	putTestDirectoryEntry(image, rootOffset+0*32, "TESTVOL    ", 0x08, 0, 0)
	putTestDirectoryEntry(image, rootOffset+1*32, "FOO     TXT", 0x20, 3, 100)
	putTestDirectoryEntry(image, rootOffset+2*32, "SUBDIR     ", 0x10, 5, 0)
	putTestDirectoryEntry(image, rootOffset+3*32, "FILE    BIN", 0x20, 6, 520)
	putTestDirectoryEntry(image, rootOffset+4*32, "SECRET  SYS", 0x06, 8, 16)

	// SUBDIR directory (cluster 5).

	subdirOffset := testClusterOffset(5)

	putTestDirectoryEntry(image, subdirOffset+0*32, ".          ", 0x10, 5, 0)
	putTestDirectoryEntry(image, subdirOffset+1*32, "..         ", 0x10, 0, 0)
	putTestDirectoryEntry(image, subdirOffset+2*32, "BAR     TXT", 0x20, 4, 11)

	// File data.

	fooOffset := testClusterOffset(3)
	for i := 0; i < testSectorSize; i++ {
		image[fooOffset+int64(i)] = byte('a' + i%26)
	}

	copy(image[testClusterOffset(4):], "hello world")

	binOffset := testClusterOffset(6)
	for i := 0; i < 2*testSectorSize; i++ {
		image[binOffset+int64(i)] = byte(i % 256)
	}

	return image
}

func getTestStreamAndReader() (rws io.ReadWriteSeeker, fr *Fat32Reader) {
	rws = bytesextra.NewReadWriteSeeker(buildTestImageBytes())
	fr = NewFat32Reader(rws)

	return rws, fr
}
