package dsp

import "sync"

// bufferPool hands out scratch []float64 buffers for FFT/filter
// workspaces. It is deliberately package-local (not shared through the
// registry): a large-allocation cache is optional but must be
// thread-local, not shared — sync.Pool already gives each goroutine/P
// its own free list under the hood.
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]float64, 0, 4096)
		return &buf
	},
}

// GetBuffer returns a scratch buffer with length n, reusing pooled
// capacity where possible. Callers MUST call PutBuffer on every exit
// path, including failure: scratch buffers must be released on all
// exit paths including failure.
func GetBuffer(n int) []float64 {
	p := bufferPool.Get().(*[]float64)
	buf := *p
	if cap(buf) < n {
		buf = make([]float64, n)
	} else {
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

// PutBuffer returns buf to the pool.
func PutBuffer(buf []float64) {
	b := buf[:0]
	bufferPool.Put(&b)
}
