package reduce

import "testing"

func TestSumPowerOfTwo(t *testing.T) {
	t.Parallel()
	vals := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	got := Sum(vals)
	if got != 36 {
		t.Fatalf("Sum = %f, want 36", got)
	}
}

func TestSumNonPowerOfTwo(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, 1, 2, 3, 5, 7, 9, 13, 17, 100} {
		vals := make([]float32, n)
		want := float32(0)
		for i := range vals {
			vals[i] = float32(i + 1)
			want += vals[i]
		}
		got := Sum(vals)
		if got != want {
			t.Fatalf("n=%d: Sum = %f, want %f", n, got, want)
		}
	}
}

func TestSumSingleElement(t *testing.T) {
	t.Parallel()
	vals := []float32{42}
	if got := Sum(vals); got != 42 {
		t.Fatalf("Sum = %f, want 42", got)
	}
}

func TestSumEmpty(t *testing.T) {
	t.Parallel()
	if got := Sum(nil); got != 0 {
		t.Fatalf("Sum(nil) = %f, want 0", got)
	}
}

func TestSumDeterministicShape(t *testing.T) {
	t.Parallel()
	// Same multiset, same slice order, must reduce to the identical
	// bit pattern every call: the pairing is fixed by len(vals) alone.
	base := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7}
	for i := 0; i < 10; i++ {
		vals := append([]float32(nil), base...)
		got := Sum(vals)
		vals2 := append([]float32(nil), base...)
		got2 := Sum(vals2)
		if got != got2 {
			t.Fatalf("non-deterministic reduction: %v != %v", got, got2)
		}
	}
}

func TestSumInto(t *testing.T) {
	t.Parallel()
	vals := [][]float32{
		{1, 10, 100},
		{2, 20, 200},
		{3, 30, 300},
		{4, 40, 400},
		{5, 50, 500},
	}
	out := make([]float32, 3)
	SumInto(vals, out)

	want := []float32{15, 150, 1500}
	for j := range want {
		if out[j] != want[j] {
			t.Fatalf("out[%d] = %f, want %f", j, out[j], want[j])
		}
	}
}

func TestSumIntoSingleWorker(t *testing.T) {
	t.Parallel()
	vals := [][]float32{{1, 2, 3}}
	out := make([]float32, 3)
	SumInto(vals, out)
	want := []float32{1, 2, 3}
	for j := range want {
		if out[j] != want[j] {
			t.Fatalf("out[%d] = %f, want %f", j, out[j], want[j])
		}
	}
}

func BenchmarkSum(b *testing.B) {
	vals := make([]float32, 256)
	for i := range vals {
		vals[i] = float32(i)
	}
	scratch := make([]float32, len(vals))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(scratch, vals)
		Sum(scratch)
	}
}
