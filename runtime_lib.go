package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// resolveSharedLibrary locates the ONNX Runtime shared library. An explicit
// override wins; otherwise conventional install locations are probed with
// the per-OS library name. A missing library is not fatal to the process,
// the caller falls back to heuristic detection instead.
func resolveSharedLibrary(override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("onnxruntime library not found: %s", override)
		}
		return override, nil
	}

	libName := "libonnxruntime.so"
	switch runtime.GOOS {
	case "darwin":
		libName = "libonnxruntime.dylib"
	case "windows":
		libName = "onnxruntime.dll"
	}

	candidates := []string{
		filepath.Join("lib", libName),
		filepath.Join("/usr/local/lib", libName),
		filepath.Join("/usr/lib", libName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("onnxruntime library %s not found in %v", libName, candidates)
}
