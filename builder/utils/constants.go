package utils

import (
	"runtime"
)

// MaxBufferSize is the largest buffer the render pool keeps for reuse.
const MaxBufferSize = 64 * 1024 // 64KB

const DefaultWorkerCountMax = 12

// GetDefaultWorkerCount returns the default worker count based on CPU cores
func GetDefaultWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		return 2
	}
	if workers > DefaultWorkerCountMax {
		return DefaultWorkerCountMax
	}
	return workers
}
