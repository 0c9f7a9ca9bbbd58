// Package prof writes Go runtime profiles for a brick run.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
)

// Session owns the profile outputs requested on the command line. The zero
// value profiles nothing.
type Session struct {
	cpu     *os.File
	memPath string
}

// Start begins CPU profiling to cpuPath (if set) and remembers memPath for
// a heap profile written by Stop.
func Start(cpuPath, memPath string) (*Session, error) {
	s := &Session{memPath: memPath}
	if cpuPath == "" {
		return s, nil
	}
	f, err := os.Create(cpuPath)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	s.cpu = f
	return s, nil
}

// Stop ends CPU profiling and writes the heap profile.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.cpu != nil {
		pprof.StopCPUProfile()
		errs = append(errs, s.cpu.Close())
		s.cpu = nil
	}
	if s.memPath != "" {
		errs = append(errs, writeHeap(s.memPath))
		s.memPath = ""
	}
	return errors.Join(errs...)
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
