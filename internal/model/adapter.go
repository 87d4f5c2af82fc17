// Package model defines the adapter interface the caller implements to
// bridge opaque samples and device-visible buffers. The core is agnostic to
// the datatypes and transforms an adapter performs; it only calls
// ConfigureWorkload before dispatch and PostprocessResults after
// completion.
package model

import "github.com/onyxsilicon/qdispatch/internal/sample"

// Datatype is a typing hint for casting a buffer pointer; the core never
// interprets it, it only threads it through from the adapter to the caller.
type Datatype int

const (
	DatatypeUnknown Datatype = iota
	DatatypeUint8
	DatatypeInt8
	DatatypeFloat16
	DatatypeFloat32
	DatatypeInt32
	DatatypeInt64
)

// DataSource is the minimal surface the core needs from an external dataset
// reader. A real dataset reader is an external collaborator; this interface
// exists so tests can supply a stub without depending on one.
type DataSource interface {
	Read(index int64) ([]byte, error)
}

// Buffers is the [port] -> bytes view for one (activation, set) pair,
// handed to the adapter for one direction (input or output).
type Buffers [][]byte

// Adapter is the stateless-per-workload object the spec calls the "model
// adapter": it fills device input buffers from samples before dispatch, and
// turns device output buffers into per-sample results after completion.
type Adapter interface {
	// ConfigureWorkload fills in for one batch. It may read from source and
	// must not retain samples or in beyond the call.
	ConfigureWorkload(source DataSource, samples sample.Batch, in Buffers) error

	// PostprocessResults reads out, invokes each sample's callback exactly
	// once, and must not retain samples or out beyond the call.
	PostprocessResults(samples sample.Batch, out Buffers) error

	// InputDatatype and OutputDatatype are typing hints for port i.
	InputDatatype(port int) Datatype
	OutputDatatype(port int) Datatype
}
