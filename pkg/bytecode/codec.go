package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Binary module encoding: a fixed magic, then each section as
// little-endian fixed-width integers with length prefixes. This is a
// loader format for tooling and the artifact cache, not a front end.

var magic = [4]byte{'F', 'L', 'B', '1'}

// Encode serializes a module.
func Encode(m *Module) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 4096))
	buf.Write(magic[:])

	writeU32(buf, uint32(len(m.Types)))
	for _, t := range m.Types {
		writeKinds(buf, t.Params)
		writeKinds(buf, t.Results)
	}

	writeU32(buf, uint32(len(m.Hosts)))
	for _, h := range m.Hosts {
		writeU32(buf, uint32(len(h.Name)))
		buf.WriteString(h.Name)
		writeU32(buf, h.TypeIndex)
	}

	writeU32(buf, uint32(len(m.Funcs)))
	for _, f := range m.Funcs {
		writeU32(buf, f.TypeIndex)
		writeKinds(buf, f.Locals)
		writeU32(buf, uint32(len(f.Body)))
		for _, in := range f.Body {
			buf.WriteByte(byte(in.Op))
			if in.Op.HasImm() {
				writeU64(buf, in.Imm)
			}
		}
	}

	writeU32(buf, m.TableSize)
	return buf.Bytes()
}

// Decode parses a module encoded by Encode.
func Decode(data []byte) (*Module, error) {
	r := &reader{data: data}

	var got [4]byte
	if err := r.read(got[:]); err != nil {
		return nil, fmt.Errorf("bytecode: truncated header: %w", err)
	}
	if got != magic {
		return nil, fmt.Errorf("bytecode: bad magic %q", got[:])
	}

	m := &Module{}

	nTypes, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("bytecode: type count: %w", err)
	}
	for i := uint32(0); i < nTypes; i++ {
		params, err := r.kinds()
		if err != nil {
			return nil, fmt.Errorf("bytecode: type %d params: %w", i, err)
		}
		results, err := r.kinds()
		if err != nil {
			return nil, fmt.Errorf("bytecode: type %d results: %w", i, err)
		}
		if len(results) > 1 {
			return nil, fmt.Errorf("bytecode: type %d has %d results, at most 1 supported", i, len(results))
		}
		m.Types = append(m.Types, FuncType{Params: params, Results: results})
	}

	nHosts, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("bytecode: host count: %w", err)
	}
	for i := uint32(0); i < nHosts; i++ {
		nameLen, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("bytecode: host %d name length: %w", i, err)
		}
		name := make([]byte, nameLen)
		if err := r.read(name); err != nil {
			return nil, fmt.Errorf("bytecode: host %d name: %w", i, err)
		}
		ti, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("bytecode: host %d type: %w", i, err)
		}
		if int(ti) >= len(m.Types) {
			return nil, fmt.Errorf("bytecode: host %d type index %d out of range", i, ti)
		}
		m.Hosts = append(m.Hosts, HostFunc{Name: string(name), TypeIndex: ti})
	}

	nFuncs, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("bytecode: function count: %w", err)
	}
	for i := uint32(0); i < nFuncs; i++ {
		ti, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("bytecode: func %d type: %w", i, err)
		}
		if int(ti) >= len(m.Types) {
			return nil, fmt.Errorf("bytecode: func %d type index %d out of range", i, ti)
		}
		locals, err := r.kinds()
		if err != nil {
			return nil, fmt.Errorf("bytecode: func %d locals: %w", i, err)
		}
		nInstr, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("bytecode: func %d body length: %w", i, err)
		}
		body := make([]Instr, 0, nInstr)
		for j := uint32(0); j < nInstr; j++ {
			opByte, err := r.u8()
			if err != nil {
				return nil, fmt.Errorf("bytecode: func %d instr %d: %w", i, j, err)
			}
			op := Opcode(opByte)
			if int(op) >= NumOpcodes {
				return nil, fmt.Errorf("bytecode: func %d instr %d: unknown opcode %d", i, j, opByte)
			}
			in := Instr{Op: op}
			if op.HasImm() {
				in.Imm, err = r.u64()
				if err != nil {
					return nil, fmt.Errorf("bytecode: func %d instr %d immediate: %w", i, j, err)
				}
			}
			body = append(body, in)
		}
		m.Funcs = append(m.Funcs, Function{TypeIndex: ti, Locals: locals, Body: body})
	}

	m.TableSize, err = r.u32()
	if err != nil {
		return nil, fmt.Errorf("bytecode: table size: %w", err)
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("bytecode: %d trailing bytes", len(r.data)-r.pos)
	}
	return m, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeKinds(buf *bytes.Buffer, kinds []ValueKind) {
	writeU32(buf, uint32(len(kinds)))
	for _, k := range kinds {
		buf.WriteByte(byte(k))
	}
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) read(dst []byte) error {
	if r.pos+len(dst) > len(r.data) {
		return fmt.Errorf("need %d bytes at offset %d, have %d", len(dst), r.pos, len(r.data)-r.pos)
	}
	copy(dst, r.data[r.pos:])
	r.pos += len(dst)
	return nil
}

func (r *reader) u8() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("need 1 byte at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	var b [4]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (r *reader) u64() (uint64, error) {
	var b [8]byte
	if err := r.read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (r *reader) kinds() ([]ValueKind, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	kinds := make([]ValueKind, n)
	for i := range kinds {
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		if b > byte(F64) {
			return nil, fmt.Errorf("invalid value kind %d", b)
		}
		kinds[i] = ValueKind(b)
	}
	return kinds, nil
}
