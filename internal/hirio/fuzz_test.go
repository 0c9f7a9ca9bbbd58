package hirio

import (
	"bytes"
	"testing"

	"brick/internal/hir"
	"brick/internal/hir/hirtest"
)

func seedModules(f *testing.F) []*hir.Module {
	f.Helper()
	var out []*hir.Module
	for _, build := range []func() (*hir.Module, error){hirtest.NestedDrops, hirtest.Reassign} {
		m, err := build()
		if err != nil {
			f.Fatalf("fixture: %v", err)
		}
		out = append(out, m)
	}
	return out
}

// Decoding arbitrary bytes must fail cleanly or produce a module that
// validates and re-encodes.
func fuzzDecode(f *testing.F, format Format) {
	for _, m := range seedModules(f) {
		var buf bytes.Buffer
		if err := Encode(&buf, m, format); err != nil {
			f.Fatalf("encode seed: %v", err)
		}
		f.Add(buf.Bytes())
	}
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := Decode(bytes.NewReader(data), format)
		if err != nil {
			return
		}
		if err := hir.Validate(m); err != nil {
			t.Fatalf("decoded module fails validation: %v", err)
		}
		var out bytes.Buffer
		if err := Encode(&out, m, format); err != nil {
			t.Fatalf("re-encode: %v", err)
		}
	})
}

func FuzzDecodeYAML(f *testing.F)    { fuzzDecode(f, FormatYAML) }
func FuzzDecodeMsgpack(f *testing.F) { fuzzDecode(f, FormatMsgpack) }
