package configbag

import "testing"

// BenchmarkLoad_DeepStack measures lookup falling through many layers.
func BenchmarkLoad_DeepStack(b *testing.B) {
	bottom := NewLayer("bottom")
	Put(bottom, retryCost(5))
	layers := []*FrozenLayer{bottom.Freeze()}
	for i := 0; i < 16; i++ {
		l := NewLayer("filler")
		Put(l, region("r"))
		layers = append(layers, l.Freeze())
	}
	bag := New("call", layers...)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Load[retryCost](bag)
	}
}

// BenchmarkStore measures writes to the head layer.
func BenchmarkStore(b *testing.B) {
	bag := New("call")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Store(bag, retryCost(i))
	}
}
