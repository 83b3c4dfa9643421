// Package posinfo describes which inline/crossline positions of a survey
// actually carry data.
//
// Irregular 3D surveys (and 2D lines, where the crossline is a trace number)
// are described line by line. Each [LineData] holds the regular runs of
// crossline numbers present on that line as [Segment] values. A [CubeData]
// is the set of all lines of a dataset:
//
//	inline 100: [1-50,1] [60-80,2]
//	inline 102: [1-80,1]
//
// Segments within a line are expected to be sorted. Ascending ([1-3,1]
// [5-9,2]) and consistently descending ([9-5,-1] [3-1,-1]) orders are both
// valid; mixed orders are not.
//
// # Sorted and unsorted cubes
//
// A plain [CubeData] keeps its lines in insertion order, which is the order
// in which traces were stored. [SortedCubeData] keeps lines sorted by line
// number so [CubeData.IndexOf] can binary search.
//
// # Iteration
//
// A [Pos] is a cheap, copyable cursor (line index, segment index, index
// within segment). [CubeData.ToNext] advances it in (line, segment, step)
// order and is the primitive every scan is built on:
//
//	var pos posinfo.Pos
//	pos.ToPreStart()
//	for cd.ToNext(&pos) {
//		bid := cd.BinID(pos)
//		...
//	}
//
// # Building
//
// [Filler] builds a CubeData from positions delivered in ascending
// (line, crossline) order. The ordering is a precondition of the caller: it
// is not checked, and violating it produces a CubeData that fails
// [CubeData.Validate].
package posinfo
