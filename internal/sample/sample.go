// Package sample defines the producer-facing data model: the opaque Sample
// a load generator hands to a Device, and the fixed-size Batch it travels in.
package sample

// Callback fires exactly once per Sample, carrying the post-processed result
// bytes produced for it. size is len(data) at the time of the call; data is
// only valid for the duration of the call and must not be retained.
type Callback func(s Sample, size int, data []byte)

// Sample is a single unit of work submitted by the producer. The producer
// owns Buf for the lifetime of the call into Device.Inference and until the
// sample's Callback fires; the core never copies or frees it.
type Sample struct {
	// Index is a producer-assigned, stable identifier. The core never
	// interprets it beyond passing it back through Callback.
	Index int64
	// Buf is a read-only view over producer-owned input bytes.
	Buf []byte
	// Callback is invoked exactly once by the completion dispatcher.
	Callback Callback
}

// Batch is an ordered sequence of Sample of fixed length equal to the
// model's configured batch size.
type Batch []Sample

// Fire invokes every sample's Callback in order, passing size and data per
// entry. It is the only call site in the core that touches user callbacks,
// keeping the exactly-once guarantee auditable from one place.
func Fire(batch Batch, sizes []int, datas [][]byte) {
	for i, s := range batch {
		if s.Callback == nil {
			continue
		}
		var size int
		var data []byte
		if i < len(sizes) {
			size = sizes[i]
		}
		if i < len(datas) {
			data = datas[i]
		}
		s.Callback(s, size, data)
	}
}
