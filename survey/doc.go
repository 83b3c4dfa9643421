// Package survey holds the collaborators the trace store consumes but does not
// own: the survey-wide inline/crossline to XY transform, survey geometry
// defaults, and resolution of a logical dataset id to a file path.
//
// A [Catalog] is a small YAML document that implements [Resolver] and
// [GeometrySource]:
//
//	surveys:
//	  north:
//	    inl: {start: 100, stop: 500, step: 2}
//	    crl: {start: 1000, stop: 3000, step: 4}
//	    z: {start: 0, stop: 4, step: 0.004}
//	    transform:
//	      x: [605000, 12.5, 0]
//	      y: [6072000, 0, 12.5]
//	datasets:
//	  stack:
//	    path: seismic/stack.cbvs
//	    survey: north
//	  line-12:
//	    path: seismic/line12.cbvs
//	    is2d: true
package survey
