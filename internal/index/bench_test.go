package index

import (
	"fmt"
	"testing"
	"time"
)

// setupBenchmarkCorpus fills an index with docs synthetic documents drawing
// from a small rotating vocabulary so query tokens hit a realistic share of
// the corpus.
func setupBenchmarkCorpus(b *testing.B, docs int) *Index {
	b.Helper()
	vocab := []string{
		"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta",
		"quick", "fox", "lazy", "dog", "search", "index", "token", "phrase",
	}
	mtime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ix := New()
	for i := 0; i < docs; i++ {
		text := ""
		for j := 0; j < 64; j++ {
			text += vocab[(i+j*7)%len(vocab)] + " "
		}
		ix.AddDocument(fmt.Sprintf("/corpus/%05d.txt", i), mtime, Analyze(text))
	}
	return ix
}

func BenchmarkIndex_Search_SingleToken(b *testing.B) {
	ix := setupBenchmarkCorpus(b, 1000)
	query := []string{"quick"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if res := ix.Search(query); len(res) == 0 {
			b.Fatal("expected results")
		}
	}
}

func BenchmarkIndex_Search_Phrase(b *testing.B) {
	ix := setupBenchmarkCorpus(b, 1000)
	query := []string{"quick", "fox"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if res := ix.Search(query); len(res) == 0 {
			b.Fatal("expected results")
		}
	}
}

func BenchmarkIndex_AddDocument(b *testing.B) {
	mtime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st := Analyze("the quick brown fox jumps over the lazy dog again and again")

	ix := New()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		// Replacement path: same key every time, full unwind plus fold-in.
		ix.AddDocument("/corpus/hot.txt", mtime, st)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	text := ""
	for i := 0; i < 200; i++ {
		text += "the quick brown foxes keep jumping over the lazy dogs "
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		st := Analyze(text)
		if st.TermCount == 0 {
			b.Fatal("expected tokens")
		}
	}
}
