package arenatest

import (
	"github.com/tetratelabs/wazero/api"
)

// GuestBuilder assembles a core wasm module that owns a linear memory and
// re-exports functions imported from a host module. Each export is a local
// function that forwards its parameters to the import, so the result can be
// passed anywhere a guest module is expected.
type GuestBuilder struct {
	hostModule string
	memoryName string
	pages      uint32
	funcs      []guestFunc
}

type guestFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

// NewGuestBuilder imports from hostModule and exports one page of memory as
// "memory".
func NewGuestBuilder(hostModule string) *GuestBuilder {
	return &GuestBuilder{hostModule: hostModule, memoryName: "memory", pages: 1}
}

// Pages sets the initial memory size in 64KiB pages.
func (b *GuestBuilder) Pages(n uint32) *GuestBuilder {
	b.pages = n
	return b
}

// MemoryName changes the memory export name. An empty name exports no memory.
func (b *GuestBuilder) MemoryName(name string) *GuestBuilder {
	b.memoryName = name
	return b
}

// Func imports name from the host module and exports a forwarder under the
// same name.
func (b *GuestBuilder) Func(name string, params, results []api.ValueType) *GuestBuilder {
	b.funcs = append(b.funcs, guestFunc{name: name, params: params, results: results})
	return b
}

// Build encodes the module.
func (b *GuestBuilder) Build() []byte {
	n := uint32(len(b.funcs))

	wasm := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}

	// type section: one type per function
	types := uleb(n)
	for _, f := range b.funcs {
		types = append(types, 0x60)
		types = append(types, uleb(uint32(len(f.params)))...)
		for _, t := range f.params {
			types = append(types, t)
		}
		types = append(types, uleb(uint32(len(f.results)))...)
		for _, t := range f.results {
			types = append(types, t)
		}
	}
	wasm = section(wasm, 0x01, types)

	imports := uleb(n)
	for i, f := range b.funcs {
		imports = append(imports, name(b.hostModule)...)
		imports = append(imports, name(f.name)...)
		imports = append(imports, 0x00)
		imports = append(imports, uleb(uint32(i))...)
	}
	wasm = section(wasm, 0x02, imports)

	// local forwarders use the same types as their imports
	funcs := uleb(n)
	for i := range b.funcs {
		funcs = append(funcs, uleb(uint32(i))...)
	}
	wasm = section(wasm, 0x03, funcs)

	memory := []byte{0x01, 0x00}
	memory = append(memory, uleb(b.pages)...)
	wasm = section(wasm, 0x05, memory)

	count := n
	if b.memoryName != "" {
		count++
	}
	exports := uleb(count)
	if b.memoryName != "" {
		exports = append(exports, name(b.memoryName)...)
		exports = append(exports, 0x02, 0x00)
	}
	for i, f := range b.funcs {
		exports = append(exports, name(f.name)...)
		exports = append(exports, 0x00)
		exports = append(exports, uleb(n+uint32(i))...)
	}
	wasm = section(wasm, 0x07, exports)

	code := uleb(n)
	for i, f := range b.funcs {
		body := []byte{0x00} // no locals
		for p := range f.params {
			body = append(body, 0x20) // local.get
			body = append(body, uleb(uint32(p))...)
		}
		body = append(body, 0x10) // call
		body = append(body, uleb(uint32(i))...)
		body = append(body, 0x0b) // end
		code = append(code, uleb(uint32(len(body)))...)
		code = append(code, body...)
	}
	return section(wasm, 0x0a, code)
}

func section(wasm []byte, id byte, payload []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, uleb(uint32(len(payload)))...)
	return append(wasm, payload...)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}
