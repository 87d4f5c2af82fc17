package model

import "github.com/onyxsilicon/qdispatch/internal/sample"

// EchoAdapter is a reference Adapter used by tests and the benchmark CLI in
// place of a real anchor-box/NMS post-processor, which is an external
// collaborator outside this module's scope. It packs each sample's input
// bytes into a fixed-stride slot of the shared input buffer and, on
// completion, hands each sample back the bytes found at the same slot in
// the output buffer - sufficient to exercise the loopback round-trip law
// (no bytes altered in transit) without any real model math.
type EchoAdapter struct {
	// SampleStride is the number of bytes reserved per sample within the
	// shared (activation, set) buffer pair.
	SampleStride int
}

// NewEchoAdapter constructs an EchoAdapter with the given per-sample byte
// stride.
func NewEchoAdapter(sampleStride int) *EchoAdapter {
	return &EchoAdapter{SampleStride: sampleStride}
}

func (a *EchoAdapter) ConfigureWorkload(_ DataSource, samples sample.Batch, in Buffers) error {
	if len(in) == 0 {
		return nil
	}
	buf := in[0]
	for i, s := range samples {
		off := i * a.SampleStride
		if off+a.SampleStride > len(buf) {
			break
		}
		n := copy(buf[off:off+a.SampleStride], s.Buf)
		for j := off + n; j < off+a.SampleStride; j++ {
			buf[j] = 0
		}
	}
	return nil
}

func (a *EchoAdapter) PostprocessResults(samples sample.Batch, out Buffers) error {
	if len(out) == 0 {
		sample.Fire(samples, nil, nil)
		return nil
	}
	buf := out[0]
	sizes := make([]int, len(samples))
	datas := make([][]byte, len(samples))
	for i := range samples {
		off := i * a.SampleStride
		if off+a.SampleStride > len(buf) {
			break
		}
		data := make([]byte, a.SampleStride)
		copy(data, buf[off:off+a.SampleStride])
		sizes[i] = a.SampleStride
		datas[i] = data
	}
	sample.Fire(samples, sizes, datas)
	return nil
}

func (a *EchoAdapter) InputDatatype(int) Datatype  { return DatatypeUint8 }
func (a *EchoAdapter) OutputDatatype(int) Datatype { return DatatypeUint8 }
