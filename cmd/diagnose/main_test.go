package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-cbvs/cbvs"
	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/seis"
	"github.com/robert-malhotra/go-cbvs/survey"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	geom := &survey.Survey{
		Name: "diag",
		Inl:  survey.Range{Start: 10, Stop: 11, Step: 1},
		Crl:  survey.Range{Start: 1, Stop: 3, Step: 1},
		Z:    survey.ZRange{Start: 0, Stop: 0.016, Step: 0.004},
	}
	ds := survey.Dataset{Path: filepath.Join(t.TempDir(), "diag.cbvs")}
	w, err := cbvs.OpenWrite(ds, nil, geom, nil)
	require.NoError(t, err)
	for inl := 10; inl <= 11; inl++ {
		for crl := 1; crl <= 3; crl++ {
			tr := seis.NewTrace(1, 5)
			tr.Header.Pos = posinfo.BinID{Inl: inl, Crl: crl}
			tr.Header.Sampling = seis.SamplingData{Start: 0, Step: 0.004}
			for s := range 5 {
				tr.Data[0][s] = float32(inl*100 + crl*10 + s)
			}
			require.NoError(t, w.Write(tr))
		}
	}
	require.NoError(t, w.Close())
	return ds.Path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDiagnoseHeader(t *testing.T) {
	path := writeDataset(t)
	out, err := execute(t, "--lines", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Files: 1")
	assert.Contains(t, out, "Kind: 3D")
	assert.Contains(t, out, "Layout: trace major")
	assert.Contains(t, out, "Lines: 2")
	assert.Contains(t, out, "Positions: 6")
	assert.Contains(t, out, "10: [[1-3,1]]")
	assert.NotContains(t, out, "Trace 1")
}

func TestDiagnoseTraces(t *testing.T) {
	path := writeDataset(t)
	out, err := execute(t, "--traces", "2", "--inline", "11", "--samples", "2", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Trace 1 at 11/1")
	assert.Contains(t, out, "Trace 2 at 11/2")
	assert.NotContains(t, out, "Trace 3")
	assert.Contains(t, out, "[1110 1111]")
}

func TestDiagnoseMissing(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "nope.cbvs"))
	assert.Error(t, err)
}
