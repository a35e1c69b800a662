package gotiff

import (
	"bytes"
	"sync"
)

// Buffer pools for strip reassembly and PNG encoding

// byteSlicePool pools byte slices in fixed size classes
type byteSlicePool struct {
	// Small buffers (up to 64KB) - thumbnails and small scans
	small sync.Pool
	// Medium buffers (up to 1MB) - 512x512 RGB pages
	medium sync.Pool
	// Large buffers (up to 4MB) - 1024x1024 RGBA pages
	large sync.Pool
}

const (
	smallBufferSize  = 64 * 1024       // 64KB
	mediumBufferSize = 1024 * 1024     // 1MB
	largeBufferSize  = 4 * 1024 * 1024 // 4MB
)

var bufferPool = &byteSlicePool{
	small: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, smallBufferSize)
			return &buf
		},
	},
	medium: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, mediumBufferSize)
			return &buf
		},
	},
	large: sync.Pool{
		New: func() interface{} {
			buf := make([]byte, largeBufferSize)
			return &buf
		},
	},
}

// GetBuffer returns a byte slice of length size from the pool.
// Its contents are unspecified. Call PutBuffer when done to return it.
func GetBuffer(size int) []byte {
	if size <= smallBufferSize {
		bufPtr := bufferPool.small.Get().(*[]byte)
		return (*bufPtr)[:size]
	}
	if size <= mediumBufferSize {
		bufPtr := bufferPool.medium.Get().(*[]byte)
		return (*bufPtr)[:size]
	}
	if size <= largeBufferSize {
		bufPtr := bufferPool.large.Get().(*[]byte)
		return (*bufPtr)[:size]
	}
	// For very large buffers, allocate directly
	return make([]byte, size)
}

// PutBuffer returns a buffer to the pool.
// The buffer should not be used after calling this function.
func PutBuffer(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}

	buf = buf[:c]

	switch c {
	case smallBufferSize:
		bufferPool.small.Put(&buf)
	case mediumBufferSize:
		bufferPool.medium.Put(&buf)
	case largeBufferSize:
		bufferPool.large.Put(&buf)
	}
	// Don't pool non-standard sizes or very large buffers
}

// bytesBufferPool pools bytes.Buffer instances
var bytesBufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBytesBuffer returns an empty bytes.Buffer from the pool
func GetBytesBuffer() *bytes.Buffer {
	buf := bytesBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBytesBuffer returns a bytes.Buffer to the pool
func PutBytesBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	// Don't pool very large buffers as they consume too much memory
	if buf.Cap() > largeBufferSize {
		return
	}
	bytesBufferPool.Put(buf)
}
