// Package scene reads and writes volume files: a small header describing
// the volume followed by the raw slices, volume after volume. 16-bit
// samples are stored big-endian and bit planes MSB first.
//
// The header is written with room to spare so that the final sample range
// can be filled in after the data, once every slice has been produced.
package scene

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"ndresample/internal/models"
)

const (
	magic = "NDSCENE1"

	// prefixSize covers the magic, the data offset and the header length.
	prefixSize = len(magic) + 8 + 4

	// headerSlack is the room kept for rewriting the sample range.
	headerSlack = 64

	// FormatVersion is stamped in every header written.
	FormatVersion = 1
)

var (
	// ErrBadMagic is returned when a file is not a scene file.
	ErrBadMagic = errors.New("not a scene file")

	// ErrVersion is returned for headers of a layout this package does
	// not read.
	ErrVersion = errors.New("unsupported scene version")
)

// Header is the metadata stored in front of the samples.
type Header struct {
	Descriptor  *models.VolumeDescriptor
	Min, Max    int64
	Description string
	Version     int
}

// Reader gives random access to the slices of a scene file.
type Reader struct {
	f          *os.File
	header     Header
	dataOffset int64
}

// Open reads and validates the header of a scene file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening scene: %w", err)
	}
	h, offset, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{f: f, header: h, dataOffset: offset}, nil
}

func readHeader(r io.ReaderAt) (Header, int64, error) {
	var h Header
	prefix := make([]byte, prefixSize)
	if _, err := r.ReadAt(prefix, 0); err != nil {
		return h, 0, fmt.Errorf("error reading header prefix: %w", err)
	}
	if string(prefix[:len(magic)]) != magic {
		return h, 0, ErrBadMagic
	}
	offset := int64(binary.BigEndian.Uint64(prefix[len(magic):]))
	size := int64(binary.BigEndian.Uint32(prefix[len(magic)+8:]))
	if size <= 0 || int64(prefixSize)+size > offset {
		return h, 0, fmt.Errorf("corrupt header: %d bytes before data offset %d", size, offset)
	}
	buf := make([]byte, size)
	if _, err := r.ReadAt(buf, int64(prefixSize)); err != nil {
		return h, 0, fmt.Errorf("error reading header: %w", err)
	}
	if _, err := h.UnmarshalMsg(buf); err != nil {
		return h, 0, fmt.Errorf("error decoding header: %w", err)
	}
	if h.Version != FormatVersion {
		return h, 0, fmt.Errorf("%w: %d (want %d)", ErrVersion, h.Version, FormatVersion)
	}
	if err := h.Descriptor.Validate(); err != nil {
		return h, 0, err
	}
	return h, offset, nil
}

// Header returns the decoded header.
func (r *Reader) Header() Header {
	return r.header
}

// Descriptor returns the volume descriptor of the file.
func (r *Reader) Descriptor() *models.VolumeDescriptor {
	return r.header.Descriptor
}

// ReadSlices reads count consecutive slices of a volume starting at first.
func (r *Reader) ReadSlices(volume, first, count int) ([]byte, error) {
	d := r.header.Descriptor
	if count <= 0 || first < 0 || volume < 0 || volume >= d.Volumes() || first+count > d.SlicesPerVolume[volume] {
		return nil, fmt.Errorf("slices %d..%d of volume %d out of range", first, first+count-1, volume)
	}
	per := int64(d.BytesPerSlice())
	buf := make([]byte, per*int64(count))
	off := r.dataOffset + int64(d.SliceIndex(volume, first))*per
	if _, err := r.f.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("error reading slices %d..%d of volume %d: %w", first, first+count-1, volume, err)
	}
	return buf, nil
}

// Close releases the file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Writer creates a scene file whose slices may be written in any order.
type Writer struct {
	f          *os.File
	header     Header
	dataOffset int64
}

// Create writes the header of a new scene file and sizes the file for all
// of its samples.
func Create(path string, d *models.VolumeDescriptor, description string) (*Writer, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	h := Header{Descriptor: d.Clone(), Description: description, Version: FormatVersion}
	body, err := h.MarshalMsg(nil)
	if err != nil {
		return nil, fmt.Errorf("error encoding header: %w", err)
	}
	offset := int64(prefixSize + len(body) + headerSlack)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error creating scene: %w", err)
	}
	w := &Writer{f: f, header: h, dataOffset: offset}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(offset + d.DataSize()); err != nil {
		f.Close()
		return nil, fmt.Errorf("error sizing scene: %w", err)
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	body, err := w.header.MarshalMsg(nil)
	if err != nil {
		return fmt.Errorf("error encoding header: %w", err)
	}
	if int64(prefixSize+len(body)) > w.dataOffset {
		return fmt.Errorf("header grew to %d bytes past data offset %d", prefixSize+len(body), w.dataOffset)
	}
	buf := make([]byte, w.dataOffset)
	copy(buf, magic)
	binary.BigEndian.PutUint64(buf[len(magic):], uint64(w.dataOffset))
	binary.BigEndian.PutUint32(buf[len(magic)+8:], uint32(len(body)))
	copy(buf[prefixSize:], body)
	if _, err := w.f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	return nil
}

// Descriptor returns the descriptor the file was created with.
func (w *Writer) Descriptor() *models.VolumeDescriptor {
	return w.header.Descriptor
}

// WriteSlices stores whole slices of a volume starting at slice first.
func (w *Writer) WriteSlices(volume, first int, data []byte) error {
	d := w.header.Descriptor
	per := d.BytesPerSlice()
	if len(data)%per != 0 {
		return fmt.Errorf("%d bytes is not a whole number of %d-byte slices", len(data), per)
	}
	count := len(data) / per
	if count == 0 || first < 0 || volume < 0 || volume >= d.Volumes() || first+count > d.SlicesPerVolume[volume] {
		return fmt.Errorf("slices %d..%d of volume %d out of range", first, first+count-1, volume)
	}
	off := w.dataOffset + int64(d.SliceIndex(volume, first))*int64(per)
	if _, err := w.f.WriteAt(data, off); err != nil {
		return fmt.Errorf("error writing slices %d..%d of volume %d: %w", first, first+count-1, volume, err)
	}
	return nil
}

// Finalize rewrites the header with the sample range and flushes the file.
func (w *Writer) Finalize(min, max int64) error {
	w.header.Min, w.header.Max = min, max
	if err := w.writeHeader(); err != nil {
		return err
	}
	return w.f.Sync()
}

// Close releases the file.
func (w *Writer) Close() error {
	return w.f.Close()
}

// WriteFile writes a complete scene in one call.
func WriteFile(path string, d *models.VolumeDescriptor, data []byte, min, max int64, description string) error {
	if int64(len(data)) != d.DataSize() {
		return fmt.Errorf("have %d bytes of samples, want %d", len(data), d.DataSize())
	}
	w, err := Create(path, d, description)
	if err != nil {
		return err
	}
	defer w.Close()
	per := d.BytesPerSlice()
	off := 0
	for v, n := range d.SlicesPerVolume {
		if err := w.WriteSlices(v, 0, data[off:off+n*per]); err != nil {
			return err
		}
		off += n * per
	}
	return w.Finalize(min, max)
}

// ReadFile returns the header and every sample of a scene.
func ReadFile(path string) (Header, []byte, error) {
	r, err := Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer r.Close()
	d := r.Descriptor()
	data := make([]byte, 0, d.DataSize())
	for v, n := range d.SlicesPerVolume {
		b, err := r.ReadSlices(v, 0, n)
		if err != nil {
			return Header{}, nil, err
		}
		data = append(data, b...)
	}
	return r.Header(), data, nil
}
