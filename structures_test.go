package fat32

import (
	"testing"

	"github.com/dsoprea/go-logging"
)

func TestFat32Reader_Parse(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	bs := fr.BootSector()

	if bs.BytesPerSector != testSectorSize {
		t.Fatalf("Sector-size not correct: (%d)", bs.BytesPerSector)
	} else if bs.SectorsPerCluster != 1 {
		t.Fatalf("Sectors-per-cluster not correct: (%d)", bs.SectorsPerCluster)
	} else if bs.ReservedSectorCount != testReservedCount {
		t.Fatalf("Reserved-sector-count not correct: (%d)", bs.ReservedSectorCount)
	} else if bs.NumFats != testNumFats {
		t.Fatalf("FAT count not correct: (%d)", bs.NumFats)
	} else if bs.FatSize32 != testFatSize {
		t.Fatalf("FAT size not correct: (%d)", bs.FatSize32)
	} else if bs.RootCluster != testRootCluster {
		t.Fatalf("Root cluster not correct: (%d)", bs.RootCluster)
	} else if bs.VolumeId != 0x12345678 {
		t.Fatalf("Volume serial-number not correct: 0x%x", bs.VolumeId)
	} else if bs.Signature != 0xaa55 {
		t.Fatalf("Signature not correct: 0x%04x", bs.Signature)
	}
}

func TestBootSector_Accessors(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	bs := fr.BootSector()

	if bs.OemNameString() != "mkfs.fat" {
		t.Fatalf("OEM name not correct: [%s]", bs.OemNameString())
	} else if bs.VolumeLabelString() != "TESTVOL" {
		t.Fatalf("Volume label not correct: [%s]", bs.VolumeLabelString())
	} else if bs.SectorSize() != testSectorSize {
		t.Fatalf("Sector size not correct: (%d)", bs.SectorSize())
	}
}

func TestBootSector_Dump(t *testing.T) {
	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	fr.BootSector().Dump()
}

func TestFat32Reader_ClusterOffset(t *testing.T) {
	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	// offset(N) = (N-2)*S + R*S + F*Z*S

	for _, clusterNumber := range []uint32{2, 3, 7, 100, 65535} {
		expected := int64(clusterNumber-2)*testSectorSize + testReservedCount*testSectorSize + testNumFats*testFatSize*testSectorSize

		if actual := fr.ClusterOffset(clusterNumber); actual != expected {
			t.Fatalf("Cluster (%d) offset not correct: (%d) != (%d)", clusterNumber, actual, expected)
		}
	}
}

func TestFat32Reader_ClusterOffset_ZeroMeansRoot(t *testing.T) {
	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	if fr.ClusterOffset(0) != fr.ClusterOffset(fr.RootCluster()) {
		t.Fatalf("Cluster zero was not remapped to the root cluster.")
	}
}

func TestFat32Reader_FatEntryOffset(t *testing.T) {
	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	if fr.FatEntryOffset(0) != testFatRegionOffset {
		t.Fatalf("FAT entry-offset for cluster zero not correct: (%d)", fr.FatEntryOffset(0))
	}

	if fr.FatEntryOffset(6) != testFatRegionOffset+24 {
		t.Fatalf("FAT entry-offset for cluster six not correct: (%d)", fr.FatEntryOffset(6))
	}
}

func TestFat32Reader_NextCluster(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	next, err := fr.NextCluster(6)
	log.PanicIf(err)

	if uint32(next) != 7 {
		t.Fatalf("Next cluster after (6) not correct: (%d)", next)
	} else if next.IsLast() != false {
		t.Fatalf("Cluster (7) misdetected as end-of-chain.")
	}

	next, err = fr.NextCluster(7)
	log.PanicIf(err)

	if next.IsLast() != true {
		t.Fatalf("End-of-chain not detected: (%d)", next)
	}
}

func TestFat32Reader_NextCluster_MasksReservedBits(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	// Entry (1) is 0xffffffff on disk; only the low 28 bits are the value.

	next, err := fr.NextCluster(1)
	log.PanicIf(err)

	if uint32(next) != 0x0fffffff {
		t.Fatalf("Reserved bits not masked: (0x%08x)", uint32(next))
	} else if next.IsLast() != true {
		t.Fatalf("Masked end-of-chain not detected.")
	}
}

func TestMappedCluster_Predicates(t *testing.T) {
	if MappedCluster(0x0ffffff7).IsBad() != true {
		t.Fatalf("Bad-cluster marker not detected.")
	}

	if MappedCluster(0x0ffffff8).IsLast() != true {
		t.Fatalf("End-of-chain lower bound not detected.")
	}

	if MappedCluster(0x0ffffff7).IsLast() != false {
		t.Fatalf("Bad-cluster marker misdetected as end-of-chain.")
	}

	if MappedCluster(0).IsFree() != true {
		t.Fatalf("Free cluster not detected.")
	}

	if MappedCluster(9).IsLast() != false {
		t.Fatalf("Chained cluster misdetected as end-of-chain.")
	}
}

func TestFat32Reader_ReadSector(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	data, err := fr.ReadSector(3)
	log.PanicIf(err)

	if len(data) != testSectorSize {
		t.Fatalf("Sector read-size not correct: (%d)", len(data))
	} else if data[0] != 'a' || data[25] != 'z' || data[26] != 'a' {
		t.Fatalf("Sector content not correct.")
	}
}

func TestFat32Reader_WriteAt(t *testing.T) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err := errRaw.(error)

			log.PrintError(err)
			t.Fatalf("Test failed.")
		}
	}()

	_, fr := getTestStreamAndReader()

	err := fr.Parse()
	log.PanicIf(err)

	offset := fr.ClusterOffset(3)

	err = fr.WriteAt(offset, []byte("xyz"))
	log.PanicIf(err)

	data, err := fr.ReadSector(3)
	log.PanicIf(err)

	if string(data[:3]) != "xyz" {
		t.Fatalf("Write not visible on read-back.")
	}
}
