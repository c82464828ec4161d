package blockvec

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/SeiyonArulampalam/tacs/scalar"
)

// WriteToFile writes the vector's owned entries to filename, one file
// shared by every rank (TACSBVec::writeToFile, originally backed by
// MPI-IO; here by positioned os.File writes since there is no cgo MPI
// binding in this build). Every rank must call this collectively with
// the same filename. The format is a little-endian int32 header
// holding the total scalar count (B*Nglobal), followed by that many
// values in global order; a complex128 value serializes as two
// float64 lanes (real, then imaginary).
func (v *BlockVector[T]) WriteToFile(filename string) error {
	lanes := scalar.LanesPerValue[T]()
	rank := v.comm.Rank()

	f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("blockvec: WriteToFile open failed: %w", err)
	}
	defer f.Close()

	if rank == 0 {
		header := make([]byte, 4)
		binary.LittleEndian.PutUint32(header, uint32(v.b*int(v.owner.NumGlobal())))
		if _, err := f.WriteAt(header, 0); err != nil {
			return fmt.Errorf("blockvec: WriteToFile header write failed: %w", err)
		}
	}
	if err := v.comm.Barrier(); err != nil {
		return fmt.Errorf("blockvec: WriteToFile barrier failed: %w", err)
	}

	ownerRange := v.owner.GetOwnerRange()
	offset := int64(4) + int64(v.b)*ownerRange[rank]*int64(lanes)*8

	buf := make([]byte, len(v.local)*lanes*8)
	for i, x := range v.local {
		re, im := scalar.ToFloat64Pair(x)
		binary.LittleEndian.PutUint64(buf[i*lanes*8:], math.Float64bits(re))
		if lanes == 2 {
			binary.LittleEndian.PutUint64(buf[i*lanes*8+8:], math.Float64bits(im))
		}
	}
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("blockvec: WriteToFile data write failed: %w", err)
	}

	return v.comm.Barrier()
}

// ReadFromFile reads a file previously written by WriteToFile into the
// vector's owned entries (TACSBVec::readFromFile). The file's header
// must match this vector's B*Nglobal; a mismatch zeros this rank's
// owned entries and returns an error, the same fallback behavior as
// the original (which warned to stderr and memset the local array).
func (v *BlockVector[T]) ReadFromFile(filename string) error {
	lanes := scalar.LanesPerValue[T]()
	rank := v.comm.Rank()

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("blockvec: ReadFromFile open failed: %w", err)
	}
	defer f.Close()

	headerBuf := make([]byte, 4)
	var length uint32
	if rank == 0 {
		if _, err := f.ReadAt(headerBuf, 0); err != nil {
			return fmt.Errorf("blockvec: ReadFromFile header read failed: %w", err)
		}
		length = binary.LittleEndian.Uint32(headerBuf)
	}
	binary.LittleEndian.PutUint32(headerBuf, length)
	bcast, err := v.comm.Bcast(headerBuf, 0)
	if err != nil {
		return fmt.Errorf("blockvec: ReadFromFile header broadcast failed: %w", err)
	}
	length = binary.LittleEndian.Uint32(bcast)

	want := uint32(v.b * int(v.owner.NumGlobal()))
	if length != want {
		scalar.Zero(v.local)
		return fmt.Errorf("blockvec: ReadFromFile size mismatch: file has %d scalars, vector expects %d", length, want)
	}

	ownerRange := v.owner.GetOwnerRange()
	offset := int64(4) + int64(v.b)*ownerRange[rank]*int64(lanes)*8

	buf := make([]byte, len(v.local)*lanes*8)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("blockvec: ReadFromFile data read failed: %w", err)
	}
	for i := range v.local {
		re := math.Float64frombits(binary.LittleEndian.Uint64(buf[i*lanes*8:]))
		var im float64
		if lanes == 2 {
			im = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*lanes*8+8:]))
		}
		v.local[i] = scalar.FromFloat64Pair[T](re, im)
	}
	return nil
}
