//go:build linux && amd64

package execmem

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"flint/pkg/baseline"
)

// Region is an anonymous mapping that holds generated code. It starts
// writable; Seal flips it to read-execute before anything runs.
type Region struct {
	mu     sync.Mutex
	buf    []byte
	sealed bool
}

// Map reserves size bytes of writable memory for code.
func Map(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("execmem: invalid region size %d", size)
	}
	buf, err := unix.Mmap(
		-1, 0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, fmt.Errorf("execmem: mmap %d bytes: %w", size, err)
	}
	return &Region{buf: buf}, nil
}

// Seal makes the region executable and drops write access.
func (r *Region) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil
	}
	if err := unix.Mprotect(r.buf, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("execmem: mprotect: %w", err)
	}
	r.sealed = true
	return nil
}

// Base returns the address of the first byte of the region.
func (r *Region) Base() uintptr {
	if len(r.buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.buf[0]))
}

// Size returns the mapped length.
func (r *Region) Size() int {
	return len(r.buf)
}

// Unmap releases the mapping. The region must not be entered again.
func (r *Region) Unmap() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buf == nil {
		return nil
	}
	err := unix.Munmap(r.buf)
	r.buf = nil
	return err
}

// Image is a sealed region holding one placed batch of functions.
type Image struct {
	region *Region
	layout *Layout
}

// Load places the artifacts, copies them into fresh executable memory,
// and seals it.
func Load(arts []*baseline.Artifact) (*Image, error) {
	l, err := Place(arts)
	if err != nil {
		return nil, err
	}
	size := len(l.Code)
	if size == 0 {
		size = 1
	}
	r, err := Map(size)
	if err != nil {
		return nil, err
	}
	copy(r.buf, l.Code)
	if err := r.Seal(); err != nil {
		r.Unmap()
		return nil, err
	}
	return &Image{region: r, layout: l}, nil
}

// FuncAddr returns the entry address of a loaded function.
func (im *Image) FuncAddr(fn uint32) (uintptr, bool) {
	off, ok := im.layout.FuncOffset(fn)
	if !ok {
		return 0, false
	}
	return im.region.Base() + uintptr(off), true
}

// Find maps a PC inside the image back to a function and offset,
// typically to attribute a fault to a recorded trap site.
func (im *Image) Find(pc uintptr) (fn uint32, off int, ok bool) {
	base := im.region.Base()
	if pc < base || pc >= base+uintptr(im.region.Size()) {
		return 0, 0, false
	}
	return im.layout.Find(int(pc - base))
}

// Close unmaps the image's memory.
func (im *Image) Close() error {
	return im.region.Unmap()
}
