// File-content access: whole-file extraction and windowed reads over a
// cluster chain.

package fat32

import (
	"io"
	"reflect"

	"github.com/dsoprea/go-logging"
)

// WriteFromClusterChain streams dataSize bytes to the given writer, starting
// from the given cluster and hopping through the FAT one sector at a time.
// The final hop reads only the remaining fragment.
func (fr *Fat32Reader) WriteFromClusterChain(firstClusterNumber uint32, dataSize uint32, w io.Writer) (err error) {
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

	sectorSize := fr.SectorSize()

	remaining := dataSize
	clusterNumber := firstClusterNumber

	for remaining > sectorSize {
		data, err := fr.ReadSector(clusterNumber)
		log.PanicIf(err)

		_, err = w.Write(data)
		log.PanicIf(err)

		remaining -= sectorSize

		next, err := fr.NextCluster(clusterNumber)
		log.PanicIf(err)

		if next.IsLast() == true {
			break
		}

		clusterNumber = uint32(next)
	}

	tail := make([]byte, remaining)

	err = fr.ReadAt(fr.ClusterOffset(clusterNumber), tail)
	log.PanicIf(err)

	_, err = w.Write(tail)
	log.PanicIf(err)

	return nil
}

// WriteWindow streams exactly `length` bytes of a file's content to the
// given writer, starting `offset` bytes into the chain that begins at the
// given cluster. Whole leading sectors are skipped by walking the FAT
// without reading data. The window is not clipped against the file size;
// a window past the end of the chain's meaningful data emits whatever bytes
// the traversed sectors hold.
func (fr *Fat32Reader) WriteWindow(firstClusterNumber uint32, offset, length uint32, w io.Writer) (err error) {
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

	sectorSize := fr.SectorSize()

	clusterNumber := firstClusterNumber

	for offset >= sectorSize {
		offset -= sectorSize

		next, err := fr.NextCluster(clusterNumber)
		log.PanicIf(err)

		clusterNumber = uint32(next)
	}

	remaining := length

	for remaining > 0 {
		span := sectorSize - offset
		if span > remaining {
			span = remaining
		}

		data := make([]byte, span)

		err = fr.ReadAt(fr.ClusterOffset(clusterNumber)+int64(offset), data)
		log.PanicIf(err)

		_, err = w.Write(data)
		log.PanicIf(err)

		remaining -= span
		offset += span

		if offset == sectorSize {
			offset = 0

			next, err := fr.NextCluster(clusterNumber)
			log.PanicIf(err)

			clusterNumber = uint32(next)
		}
	}

	return nil
}
