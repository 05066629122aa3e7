package codecache

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"flint/pkg/baseline"
	"flint/pkg/bytecode"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testModule() *bytecode.Module {
	return &bytecode.Module{
		Types: []bytecode.FuncType{{
			Params:  []bytecode.ValueKind{bytecode.I32},
			Results: []bytecode.ValueKind{bytecode.I32},
		}},
		Funcs: []bytecode.Function{{
			TypeIndex: 0,
			Locals:    []bytecode.ValueKind{bytecode.I64},
			Body: []bytecode.Instr{
				{Op: bytecode.OpLocalGet, Imm: 0},
				{Op: bytecode.OpReturn},
			},
		}},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)

	key, err := KeyFor("amd64", 3, testModule(), 0)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	art := &baseline.Artifact{
		FuncIndex: 0,
		Target:    "amd64",
		Code:      []byte{0x55, 0x48, 0x89, 0xE5, 0xC3},
		Frame: baseline.FrameLayout{
			InstanceOffset:  -8,
			FirstSlotOffset: -16,
			SlotSize:        8,
			SlotCount:       2,
		},
		Relocs: []baseline.Reloc{{Offset: 12, Func: 7}},
		Traps: []baseline.TrapSite{
			{Offset: 30, Kind: baseline.TrapMemoryOutOfBounds, Recovery: 64},
			{Offset: 64, Kind: baseline.TrapMemoryOutOfBounds, Recovery: -1},
		},
		Safepoints: []baseline.Safepoint{{
			Offset: 16,
			Live: []baseline.SlotRef{
				{Slot: 0, Kind: bytecode.I32, Loc: baseline.SlotLoc(0)},
				{Slot: 1, Kind: bytecode.I64, Loc: baseline.ConstLoc(9)},
			},
		}},
	}

	if err := c.Put(key, art); err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	got, err := c.Get(key)
	if err != nil {
		t.Fatalf("Failed to get: %v", err)
	}
	if diff := cmp.Diff(art, got); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)
	got, err := c.Get(Key{1, 2, 3})
	if err != nil {
		t.Fatalf("miss returned error: %v", err)
	}
	if got != nil {
		t.Errorf("miss returned artifact: %+v", got)
	}
}

func TestPutAllStoresEveryEntry(t *testing.T) {
	c := openTestCache(t)

	arts := make(map[Key]*baseline.Artifact)
	for i := uint32(0); i < 3; i++ {
		arts[Key{byte(i)}] = &baseline.Artifact{
			FuncIndex: i,
			Target:    "amd64",
			Code:      []byte{0xC3},
		}
	}
	if err := c.PutAll(arts); err != nil {
		t.Fatalf("Failed to put batch: %v", err)
	}
	for key, want := range arts {
		got, err := c.Get(key)
		if err != nil {
			t.Fatalf("Failed to get %v: %v", key, err)
		}
		if got == nil || got.FuncIndex != want.FuncIndex {
			t.Errorf("Get(%v) = %+v, want index %d", key, got, want.FuncIndex)
		}
	}
}

func TestKeyForIsDeterministic(t *testing.T) {
	a, err := KeyFor("amd64", 3, testModule(), 0)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	b, err := KeyFor("amd64", 3, testModule(), 0)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	if a != b {
		t.Errorf("same input hashed to %v and %v", a, b)
	}
}

func TestKeyForDivergesOnInput(t *testing.T) {
	base, err := KeyFor("amd64", 3, testModule(), 0)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}

	cases := []struct {
		name     string
		target   string
		features uint64
		mutate   func(*bytecode.Module)
	}{
		{name: "target", target: "arm64", features: 3},
		{name: "features", target: "amd64", features: 0},
		{
			name: "body", target: "amd64", features: 3,
			mutate: func(m *bytecode.Module) { m.Funcs[0].Body[0].Imm = 1 },
		},
		{
			name: "locals", target: "amd64", features: 3,
			mutate: func(m *bytecode.Module) { m.Funcs[0].Locals[0] = bytecode.F64 },
		},
		{
			name: "signature", target: "amd64", features: 3,
			mutate: func(m *bytecode.Module) { m.Types[0].Results = nil },
		},
	}
	for _, c := range cases {
		m := testModule()
		if c.mutate != nil {
			c.mutate(m)
		}
		key, err := KeyFor(c.target, c.features, m, 0)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if key == base {
			t.Errorf("%s change did not change the key", c.name)
		}
	}
}

func TestKeyForBadIndex(t *testing.T) {
	if _, err := KeyFor("amd64", 0, testModule(), 5); err == nil {
		t.Error("KeyFor(5) succeeded on a one-function module")
	}
}
