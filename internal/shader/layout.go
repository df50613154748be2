package shader

import "deferred-engine/internal/gpu"

// Layout computes the interleaved byte layout of a vertex made of float
// attributes with the given component counts. Offsets are the running sum
// of the preceding attributes; stride is the size of the whole vertex.
//
//	Layout([]int32{3, 2, 4, 3}) == 48, [0 12 20 36]
func Layout(sizes []int32) (stride int32, offsets []int32) {
	offsets = make([]int32, len(sizes))
	for i, n := range sizes {
		offsets[i] = stride
		stride += n * gpu.FloatSize
	}
	return stride, offsets
}

// Floats returns the number of floats in one vertex of the layout.
func Floats(sizes []int32) int {
	var n int32
	for _, s := range sizes {
		n += s
	}
	return int(n)
}
