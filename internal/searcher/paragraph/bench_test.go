package paragraph

import (
	"strings"
	"testing"
)

func BenchmarkSearchInDocument(b *testing.B) {
	var sb strings.Builder
	for i := range 500 {
		sb.WriteString("A paragraph about distributed systems and ")
		if i%10 == 0 {
			sb.WriteString("Ünïcode TARGET words ")
		}
		sb.WriteString("more filler text.\n\n")
	}
	content := sb.String()
	b.SetBytes(int64(len(content)))
	b.ReportAllocs()
	for b.Loop() {
		if got := SearchInDocument(content, "target"); len(got) != 50 {
			b.Fatalf("got %d records", len(got))
		}
	}
}
