package execmem

import (
	"encoding/binary"
	"fmt"
	"sort"

	"flint/pkg/baseline"
)

// funcAlign is the alignment of every function's entry point.
const funcAlign = 16

// Layout places a batch of compiled functions in one contiguous span
// and resolves their call relocations. The byte slice it returns is
// ready to copy into executable memory.
type Layout struct {
	Code []byte
	offs map[uint32]int
	// sorted function starts for reverse lookup
	starts []funcStart
}

type funcStart struct {
	off  int
	fn   uint32
	size int
}

// Place lays the artifacts out back to back, each aligned to a 16-byte
// boundary, and patches every direct-call displacement. Gaps between
// functions are filled with int3 so a stray jump faults immediately.
func Place(arts []*baseline.Artifact) (*Layout, error) {
	l := &Layout{offs: make(map[uint32]int, len(arts))}
	total := 0
	for _, a := range arts {
		total = alignUp(total, funcAlign)
		if _, dup := l.offs[a.FuncIndex]; dup {
			return nil, fmt.Errorf("execmem: function %d placed twice", a.FuncIndex)
		}
		l.offs[a.FuncIndex] = total
		l.starts = append(l.starts, funcStart{off: total, fn: a.FuncIndex, size: len(a.Code)})
		total += len(a.Code)
	}
	l.Code = make([]byte, total)
	for i := range l.Code {
		l.Code[i] = 0xCC
	}
	for _, a := range arts {
		copy(l.Code[l.offs[a.FuncIndex]:], a.Code)
	}
	for _, a := range arts {
		base := l.offs[a.FuncIndex]
		for _, rel := range a.Relocs {
			target, ok := l.offs[rel.Func]
			if !ok {
				return nil, fmt.Errorf("execmem: function %d calls %d, which is not in this batch",
					a.FuncIndex, rel.Func)
			}
			immOff := base + rel.Offset
			disp := int32(target - (immOff + 4))
			binary.LittleEndian.PutUint32(l.Code[immOff:], uint32(disp))
		}
	}
	return l, nil
}

// FuncOffset returns the offset of a function's entry point within Code.
func (l *Layout) FuncOffset(fn uint32) (int, bool) {
	off, ok := l.offs[fn]
	return off, ok
}

// Find maps an offset within Code back to the function containing it.
func (l *Layout) Find(off int) (fn uint32, rel int, ok bool) {
	i := sort.Search(len(l.starts), func(i int) bool {
		return l.starts[i].off > off
	})
	if i == 0 {
		return 0, 0, false
	}
	fs := l.starts[i-1]
	if off >= fs.off+fs.size {
		return 0, 0, false
	}
	return fs.fn, off - fs.off, true
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
