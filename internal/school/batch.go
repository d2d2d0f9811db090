package school

// Failure is an item a batch could not apply and why.
type Failure[T any] struct {
	Item   T      `json:"item"`
	Reason string `json:"reason"`
}

// Batch records per-item outcomes of a loop that keeps going after a failure.
type Batch[T any] struct {
	Succeeded []T          `json:"succeeded"`
	Failed    []Failure[T] `json:"failed"`
}

func newBatch[T any]() Batch[T] {
	return Batch[T]{Succeeded: []T{}, Failed: []Failure[T]{}}
}

func (b *Batch[T]) ok(item T) {
	b.Succeeded = append(b.Succeeded, item)
}

func (b *Batch[T]) fail(item T, err error) {
	b.Failed = append(b.Failed, Failure[T]{Item: item, Reason: err.Error()})
}
