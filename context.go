package engine

import "sync"

// compileContext holds the scratch memory of one compilation so that
// compiling many sets does not allocate per sub-domain.
type compileContext struct {
	// Nibble table synthesis
	upper    [16]uint16 // lower-nibble pattern per upper nibble
	distinct [16]uint16 // distinct non-zero patterns
	masks    [16]uint8  // bit mask assigned to each distinct pattern
	atom     [16]bool   // pattern owns a bit (is not a union of others)

	// Intersection of the set with the current sub-domain, reused across
	// sub-domains. Matchers copy out of it.
	intersection []int32
}

var compileContextPool = sync.Pool{
	New: func() interface{} {
		return &compileContext{intersection: make([]int32, 0, 64)}
	},
}

// reset clears the context for reuse without giving up its memory.
func (ctx *compileContext) reset() {
	ctx.upper = [16]uint16{}
	ctx.intersection = ctx.intersection[:0]
}
