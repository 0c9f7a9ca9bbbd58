package driver

import (
	"crypto/sha256"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"brick/internal/hir"
	"brick/internal/types"
)

// signature is the part of a function its callers can observe.
type signature struct {
	Name   string       `msgpack:"name"`
	Params []hir.Param  `msgpack:"params"`
	Result types.TypeID `msgpack:"result"`
}

// moduleEnv is everything besides a function's own body that can change
// its check result.
type moduleEnv struct {
	Schema     uint16       `msgpack:"schema"`
	IR         string       `msgpack:"ir"`
	Types      []types.Type `msgpack:"types"`
	Globals    []hir.Global `msgpack:"globals"`
	Signatures []signature  `msgpack:"sigs"`
	MaxIters   int          `msgpack:"max_iters"`
	MaxDiags   int          `msgpack:"max_diags"`
}

// envDigest hashes the module environment once per CheckModule call.
func envDigest(m *hir.Module, opts Options) (Digest, error) {
	env := moduleEnv{
		Schema:   cacheSchemaVersion,
		IR:       m.Version,
		Types:    m.Facts().Types(),
		Globals:  m.Globals,
		MaxIters: opts.MaxIterations,
		MaxDiags: opts.MaxDiagnostics,
	}
	for _, fn := range m.Funcs {
		env.Signatures = append(env.Signatures, signature{Name: fn.Name, Params: fn.Params, Result: fn.Result})
	}
	data, err := msgpack.Marshal(&env)
	if err != nil {
		return Digest{}, fmt.Errorf("hash module environment: %w", err)
	}
	return sha256.Sum256(data), nil
}

// funcDigest: H(env || msgpack(fn)).
func funcDigest(env Digest, fn *hir.Func) (Digest, error) {
	data, err := msgpack.Marshal(fn)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", fn.Name, err)
	}
	h := sha256.New()
	_, _ = h.Write(env[:])
	_, _ = h.Write(data)
	var out Digest
	copy(out[:], h.Sum(nil))
	return out, nil
}
