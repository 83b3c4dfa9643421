// Package cbvs stores seismic traces in CBVS files.
//
// A CBVS dataset is one or more sibling files sharing a dataset id. Each
// file starts with a fixed preamble, followed by an info block describing
// components and sampling, fixed-size trace records and a trailer holding
// the positions stored in the file:
//
//	preamble | info | record 0 | record 1 | ... | trailer
//
// Large datasets are split into siblings named <base>, <base>.1, <base>.2
// at inline boundaries ([WithMaxFileSize]). Datasets read mostly by Z range
// can instead be bricked vertically ([WithBricks]): every file then holds
// all positions for one slab of samples. Sets of more than a hundred files,
// or any set written with [WithDirectory], live in a directory named after
// the dataset.
//
// The package plugs into [seis] as a [seis.Format]:
//
//	reg, err := seis.NewFormatRegistry(cbvs.Format(cbvs.WithMaxFileSize(1 << 30)))
//	w, err := seis.OpenWrite(reg, catalog, "survey/near", comps, geom)
//
// [OpenRead] and [OpenWrite] cover the common case of a single dataset
// without a catalog.
package cbvs
