package codecache

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"flint/pkg/bytecode"
)

// Key identifies one compiled function in the cache.
type Key [32]byte

// keySchema is folded into every key. Bump it when the artifact layout
// or the generated code's conventions change incompatibly; old entries
// then simply stop matching.
const keySchema = 1

// keyMaterial is everything the generated code depends on. Two
// functions hashing equal here compile to identical artifacts.
type keyMaterial struct {
	Schema   uint32
	Target   string
	Features uint64
	Params   []bytecode.ValueKind
	Results  []bytecode.ValueKind
	Locals   []bytecode.ValueKind
	Body     []bytecode.Instr
}

// KeyFor derives the cache key for one function of a module compiled
// for the given target and CPU feature bits.
func KeyFor(target string, features uint64, m *bytecode.Module, funcIndex uint32) (Key, error) {
	sig, err := m.FuncType(funcIndex)
	if err != nil {
		return Key{}, err
	}
	fn := &m.Funcs[funcIndex]
	enc, err := encMode.Marshal(&keyMaterial{
		Schema:   keySchema,
		Target:   target,
		Features: features,
		Params:   sig.Params,
		Results:  sig.Results,
		Locals:   fn.Locals,
		Body:     fn.Body,
	})
	if err != nil {
		return Key{}, fmt.Errorf("codecache: marshal key material: %w", err)
	}
	return blake2b.Sum256(enc), nil
}

func (k Key) String() string {
	return fmt.Sprintf("%x", k[:8])
}
