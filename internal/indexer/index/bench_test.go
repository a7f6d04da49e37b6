package index

import (
	"fmt"
	"testing"
	"time"
)

func benchTags(i int) map[string][]Occurrence {
	return map[string][]Occurrence{
		"#project": {{LineIndex: 0, LineText: "notes #project", Context: "notes #project", MatchOffset: 6}},
		fmt.Sprintf("#t%d", i%100): {{LineIndex: 1, LineText: "x", Context: "x", MatchOffset: 0}},
	}
}

func BenchmarkReplaceDocument(b *testing.B) {
	mi := NewMemoryIndex()
	now := time.Now()
	b.ReportAllocs()
	for i := 0; b.Loop(); i++ {
		mi.ReplaceDocument(fmt.Sprintf("doc-%d", i%1000), "bench", benchTags(i), now)
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	mi := NewMemoryIndex()
	now := time.Now()
	for i := range 10000 {
		mi.ReplaceDocument(fmt.Sprintf("doc-%d", i), "bench", benchTags(i), now)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = mi.Search("#t42")
		}
	})
}

func BenchmarkSnapshotEncode(b *testing.B) {
	mi := NewMemoryIndex()
	now := time.Now()
	for i := range 2000 {
		mi.ReplaceDocument(fmt.Sprintf("doc-%d", i), "bench", benchTags(i), now)
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := Encode(mi.Snapshot()); err != nil {
			b.Fatal(err)
		}
	}
}
