// Package mnist reads the MNIST IDX label/image container pair and
// yields (label, pixels) samples.
//
// IDX file layout (all integers big-endian):
//
//	labels: magic 0x00000801 (2049), count, then count unsigned bytes
//	images: magic 0x00000803 (2051), count, rows, cols, then
//	        count*rows*cols unsigned bytes in row-major order
package mnist

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	labelsMagic = 2049
	imagesMagic = 2051
)

// Dataset format errors.
var (
	ErrInvalidMagic  = errors.New("invalid IDX magic number")
	ErrCountMismatch = errors.New("label count does not match image count")
)

// Reader streams paired label/image samples from the two IDX files. It
// is a finite, one-pass source: each sample is read from disk once and
// never retained.
type Reader struct {
	labels *os.File
	images *os.File

	count  int
	width  int
	height int
	index  int
}

// Open validates both container headers and pairs them up. A label
// count differing from the image count rejects the pair outright.
func Open(labelsPath, imagesPath string) (*Reader, error) {
	labels, count, err := openLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	images, imageCount, width, height, err := openImages(imagesPath)
	if err != nil {
		_ = labels.Close()
		return nil, err
	}

	if count != imageCount {
		_ = labels.Close()
		_ = images.Close()
		return nil, fmt.Errorf("%w: %d labels, %d images", ErrCountMismatch, count, imageCount)
	}

	return &Reader{
		labels: labels,
		images: images,
		count:  int(count),
		width:  int(width),
		height: int(height),
	}, nil
}

func openLabels(path string) (*os.File, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("mnist: open labels: %w", err)
	}

	var header struct {
		Magic uint32
		Count uint32
	}
	if err := binary.Read(f, binary.BigEndian, &header); err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("mnist: read label header: %w", err)
	}
	if header.Magic != labelsMagic {
		_ = f.Close()
		return nil, 0, fmt.Errorf("%w: got %d, want %d", ErrInvalidMagic, header.Magic, labelsMagic)
	}

	return f, header.Count, nil
}

func openImages(path string) (*os.File, uint32, uint32, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("mnist: open images: %w", err)
	}

	var header struct {
		Magic uint32
		Count uint32
		Rows  uint32
		Cols  uint32
	}
	if err := binary.Read(f, binary.BigEndian, &header); err != nil {
		_ = f.Close()
		return nil, 0, 0, 0, fmt.Errorf("mnist: read image header: %w", err)
	}
	if header.Magic != imagesMagic {
		_ = f.Close()
		return nil, 0, 0, 0, fmt.Errorf("%w: got %d, want %d", ErrInvalidMagic, header.Magic, imagesMagic)
	}

	return f, header.Count, header.Cols, header.Rows, nil
}

// Len returns the number of samples announced by the headers.
func (r *Reader) Len() int { return r.count }

// Width returns the image width in pixels.
func (r *Reader) Width() int { return r.width }

// Height returns the image height in pixels.
func (r *Reader) Height() int { return r.height }

// Next reads the next (label, pixels) pair. It returns io.EOF once the
// announced count is exhausted; a file ending early surfaces as a
// wrapped io.ErrUnexpectedEOF.
func (r *Reader) Next() (byte, []byte, error) {
	if r.index >= r.count {
		return 0, nil, io.EOF
	}

	var label [1]byte
	if _, err := io.ReadFull(r.labels, label[:]); err != nil {
		return 0, nil, fmt.Errorf("mnist: read label %d: %w", r.index, noEOF(err))
	}

	pixels := make([]byte, r.width*r.height)
	if _, err := io.ReadFull(r.images, pixels); err != nil {
		return 0, nil, fmt.Errorf("mnist: read image %d: %w", r.index, noEOF(err))
	}

	r.index++
	return label[0], pixels, nil
}

// Close releases both underlying files.
func (r *Reader) Close() error {
	lerr := r.labels.Close()
	ierr := r.images.Close()
	if lerr != nil {
		return lerr
	}
	return ierr
}

// noEOF converts a bare io.EOF into io.ErrUnexpectedEOF: hitting the
// end of the file before the announced count is a truncation, not a
// clean end of stream.
func noEOF(err error) error {
	if errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
