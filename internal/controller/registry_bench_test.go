package controller

import (
	"context"
	"fmt"
	"testing"
)

type countingResolver struct{ n int }

func (c *countingResolver) Resolve(context.Context, string, map[string]struct{}) (string, error) {
	c.n++
	return fmt.Sprintf("id-%d", c.n), nil
}

func setupBenchRegistry(b *testing.B, pads int) *Registry {
	b.Helper()
	r := NewRegistry(&countingResolver{})
	for i := 0; i < pads; i++ {
		if _, err := r.OnConnect(context.Background(), i, "PadX", 17, 4); err != nil {
			b.Fatalf("connecting pad %d: %v", i, err)
		}
	}
	return r
}

func BenchmarkApplyAxis_Unchanged(b *testing.B) {
	r := setupBenchRegistry(b, 4)
	sample := AxisState{Index: 2, Value: 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.ApplyAxis(1, sample) //nolint:errcheck // benchmark
	}
}

func BenchmarkApplyButton_Toggle(b *testing.B) {
	r := setupBenchRegistry(b, 4)
	on := ButtonState{Index: 3, Pressed: true, Value: 1, Percent: 100}
	off := ButtonState{Index: 3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%2 == 0 {
			r.ApplyButton(2, on) //nolint:errcheck // benchmark
		} else {
			r.ApplyButton(2, off) //nolint:errcheck // benchmark
		}
	}
}

func BenchmarkSnapshot(b *testing.B) {
	r := setupBenchRegistry(b, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Snapshot()
	}
}
