package sample

import "testing"

func TestFireInvokesEveryCallback(t *testing.T) {
	t.Parallel()

	var got []string
	batch := Batch{
		{Index: 0, Callback: func(s Sample, size int, data []byte) {
			got = append(got, string(data))
		}},
		{Index: 1, Callback: func(s Sample, size int, data []byte) {
			got = append(got, string(data))
		}},
	}

	Fire(batch, []int{3, 3}, [][]byte{[]byte("foo"), []byte("bar")})

	if len(got) != 2 || got[0] != "foo" || got[1] != "bar" {
		t.Fatalf("unexpected callback order/data: %v", got)
	}
}

func TestFireSkipsNilCallback(t *testing.T) {
	t.Parallel()

	batch := Batch{{Index: 0, Callback: nil}}
	// Must not panic.
	Fire(batch, []int{0}, [][]byte{nil})
}

func TestFireShortSizesAndDatas(t *testing.T) {
	t.Parallel()

	var sizes []int
	var datas [][]byte
	batch := Batch{
		{Index: 0, Callback: func(s Sample, size int, data []byte) {
			sizes = append(sizes, size)
			datas = append(datas, data)
		}},
		{Index: 1, Callback: func(s Sample, size int, data []byte) {
			sizes = append(sizes, size)
			datas = append(datas, data)
		}},
	}

	// Only one entry supplied for a two-sample batch: the second sample must
	// still fire, with a zero size and nil data.
	Fire(batch, []int{5}, [][]byte{[]byte("hello")})

	if len(sizes) != 2 || sizes[0] != 5 || sizes[1] != 0 {
		t.Fatalf("unexpected sizes: %v", sizes)
	}
	if datas[1] != nil {
		t.Fatalf("expected nil data for out-of-range sample, got %v", datas[1])
	}
}
