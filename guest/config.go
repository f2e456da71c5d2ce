package guest

import (
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/pool"
)

// Default export names of the FDB C client.
const (
	DefaultMemoryName             = "memory"
	DefaultGetKeyArray            = "fdb_future_get_key_array"
	DefaultGetKeyValueArray       = "fdb_future_get_keyvalue_array"
	DefaultGetMappedKeyValueArray = "fdb_future_get_mappedkeyvalue_array"
	DefaultDestroy                = "fdb_future_destroy"
	DefaultGetError               = "fdb_get_error"
	DefaultRealloc                = "cabi_realloc"
)

// Config controls how a Client binds to a guest module.
// Empty names fall back to the defaults above.
type Config struct {
	// Memory overrides the exported memory, for guests that import theirs.
	Memory api.Memory

	// Allocator backs the host copies of result arrays. nil uses the heap.
	Allocator pool.Allocator

	// Observers receive lifecycle events of every future the client wraps.
	Observers []future.Observer

	MemoryName             string
	GetKeyArray            string
	GetKeyValueArray       string
	GetMappedKeyValueArray string
	Destroy                string
	GetError               string

	// Realloc names the allocator used for out-parameters in guest memory.
	Realloc string
}

// DefaultConfig returns a Config with every export name set.
func DefaultConfig() *Config {
	return &Config{
		MemoryName:             DefaultMemoryName,
		GetKeyArray:            DefaultGetKeyArray,
		GetKeyValueArray:       DefaultGetKeyValueArray,
		GetMappedKeyValueArray: DefaultGetMappedKeyValueArray,
		Destroy:                DefaultDestroy,
		GetError:               DefaultGetError,
		Realloc:                DefaultRealloc,
	}
}

func (c *Config) withDefaults() Config {
	out := *DefaultConfig()
	if c == nil {
		return out
	}
	out.Memory = c.Memory
	out.Allocator = c.Allocator
	out.Observers = c.Observers

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.MemoryName, c.MemoryName)
	set(&out.GetKeyArray, c.GetKeyArray)
	set(&out.GetKeyValueArray, c.GetKeyValueArray)
	set(&out.GetMappedKeyValueArray, c.GetMappedKeyValueArray)
	set(&out.Destroy, c.Destroy)
	set(&out.GetError, c.GetError)
	set(&out.Realloc, c.Realloc)
	return out
}
