package bytecode

import "fmt"

// Function is one bytecode function body with its declared signature and
// extra locals. Bodies arrive from an external decoder/validator and are
// assumed well typed; the compiler does not re-check them.
type Function struct {
	TypeIndex uint32
	Locals    []ValueKind
	Body      []Instr
}

// HostFunc is an imported C-convention function, dispatched at run time
// through the instance host table at its declared index.
type HostFunc struct {
	Name      string
	TypeIndex uint32
}

// Module is the unit of compilation input.
type Module struct {
	Types     []FuncType
	Funcs     []Function
	Hosts     []HostFunc
	TableSize uint32
}

// FuncType resolves a function's signature.
func (m *Module) FuncType(funcIndex uint32) (FuncType, error) {
	if int(funcIndex) >= len(m.Funcs) {
		return FuncType{}, fmt.Errorf("bytecode: function index %d out of range", funcIndex)
	}
	ti := m.Funcs[funcIndex].TypeIndex
	if int(ti) >= len(m.Types) {
		return FuncType{}, fmt.Errorf("bytecode: type index %d out of range", ti)
	}
	return m.Types[ti], nil
}

// HostType resolves a host import's signature.
func (m *Module) HostType(hostIndex uint32) (FuncType, error) {
	if int(hostIndex) >= len(m.Hosts) {
		return FuncType{}, fmt.Errorf("bytecode: host index %d out of range", hostIndex)
	}
	ti := m.Hosts[hostIndex].TypeIndex
	if int(ti) >= len(m.Types) {
		return FuncType{}, fmt.Errorf("bytecode: type index %d out of range", ti)
	}
	return m.Types[ti], nil
}

// NumLabels returns one past the highest label id used in body, for
// sizing label tables.
func NumLabels(body []Instr) int {
	max := -1
	for _, in := range body {
		switch in.Op {
		case OpLabel, OpBr, OpBrIf:
			if int(in.Imm) > max {
				max = int(in.Imm)
			}
		}
	}
	return max + 1
}
