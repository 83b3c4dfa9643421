package cbvs

import (
	"github.com/robert-malhotra/go-cbvs/seis"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// datasetResolver resolves every id to one dataset.
type datasetResolver survey.Dataset

func (r datasetResolver) Resolve(id string) (survey.Dataset, error) {
	ds := survey.Dataset(r)
	ds.ID = id
	return ds, nil
}

func single(ds survey.Dataset, fopts []Option) (*seis.FormatRegistry, survey.Resolver, error) {
	reg, err := seis.NewFormatRegistry(Format(fopts...))
	if err != nil {
		return nil, nil, err
	}
	ds.Format = Name
	return reg, datasetResolver(ds), nil
}

// OpenRead opens the CBVS dataset ds for reading the positions sel accepts.
func OpenRead(ds survey.Dataset, sel seis.Selection, fopts []Option, opts ...seis.Option) (*seis.Reader, error) {
	reg, res, err := single(ds, fopts)
	if err != nil {
		return nil, err
	}
	return seis.OpenRead(reg, res, ds.Path, sel, opts...)
}

// OpenWrite creates the CBVS dataset ds. Nothing is written until the
// first trace arrives.
func OpenWrite(ds survey.Dataset, comps []seis.ComponentDescriptor, geom survey.Geometry, fopts []Option, opts ...seis.Option) (*seis.Writer, error) {
	reg, res, err := single(ds, fopts)
	if err != nil {
		return nil, err
	}
	return seis.OpenWrite(reg, res, ds.Path, comps, geom, opts...)
}
