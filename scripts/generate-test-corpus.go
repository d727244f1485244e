//go:build ignore

// Package main generates a synthetic text tree for benchmarking the
// indexer.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
//
// The generated tree mixes prose, markdown, and source files with skewed
// term frequencies, so ranking has realistic document frequencies to chew
// on. The same seed always produces the same tree.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Word pools. Topics are rare (one per file), subjects and actions common,
// fillers everywhere, which spreads document frequency across the range
// the ranker cares about.
var (
	topics = []string{
		"lighthouse", "archipelago", "observatory", "aqueduct", "foundry",
		"monsoon", "glacier", "caravan", "orchard", "quarry",
		"viaduct", "estuary", "savanna", "citadel", "amphitheater",
	}
	subjects = []string{
		"pipeline", "snapshot", "watcher", "tokenizer", "scheduler",
		"cache", "ledger", "queue", "manifest", "registry",
		"broker", "resolver", "planner", "cursor", "journal",
	}
	actions = []string{
		"drains", "rebuilds", "compacts", "replays", "shards",
		"batches", "throttles", "retries", "merges", "prunes",
		"validates", "publishes", "expires", "rotates", "indexes",
	}
	fillers = []string{
		"the", "a", "each", "every", "under", "load", "without",
		"blocking", "while", "holding", "state", "between", "runs",
		"across", "restarts", "quietly", "in", "order",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for _, subdir := range []string{"notes", "docs", "src"} {
		if err := os.MkdirAll(filepath.Join(*outputDir, subdir), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", subdir, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generating %d files in %s (seed %d)...\n", *numFiles, *outputDir, *seed)

	txtFiles := *numFiles * 40 / 100
	mdFiles := *numFiles * 30 / 100
	goFiles := *numFiles - txtFiles - mdFiles

	generated := 0
	for i := 0; i < txtFiles; i++ {
		if err := writeNote(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating note %d: %v\n", i, err)
			continue
		}
		generated++
	}
	for i := 0; i < mdFiles; i++ {
		if err := writeDoc(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating doc %d: %v\n", i, err)
			continue
		}
		generated++
	}
	for i := 0; i < goFiles; i++ {
		if err := writeSource(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating source %d: %v\n", i, err)
			continue
		}
		generated++
	}

	fmt.Printf("Generated %d files.\n", generated)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

// sentence builds one clause around a subject/action pair padded with
// fillers.
func sentence(rng *rand.Rand, topic string) string {
	words := []string{pick(rng, fillers), pick(rng, subjects), pick(rng, actions)}
	for n := 2 + rng.Intn(6); n > 0; n-- {
		words = append(words, pick(rng, fillers))
	}
	if rng.Intn(4) == 0 {
		words = append(words, topic)
	}
	s := strings.Join(words, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func paragraph(rng *rand.Rand, topic string) string {
	var sentences []string
	for n := 2 + rng.Intn(4); n > 0; n-- {
		sentences = append(sentences, sentence(rng, topic))
	}
	return strings.Join(sentences, " ")
}

func writeNote(rng *rand.Rand, index int) error {
	topic := pick(rng, topics)
	var b strings.Builder
	for n := 1 + rng.Intn(5); n > 0; n-- {
		b.WriteString(paragraph(rng, topic))
		b.WriteString("\n\n")
	}

	name := fmt.Sprintf("%s-%04d.txt", topic, index)
	return os.WriteFile(filepath.Join(*outputDir, "notes", name), []byte(b.String()), 0o644)
}

func writeDoc(rng *rand.Rand, index int) error {
	topic := pick(rng, topics)
	subject := pick(rng, subjects)

	var b strings.Builder
	fmt.Fprintf(&b, "# The %s %s\n\n", topic, subject)
	b.WriteString(paragraph(rng, topic))
	b.WriteString("\n\n## Operation\n\n")
	b.WriteString(paragraph(rng, topic))
	b.WriteString("\n\n## Notes\n\n")
	for n := 2 + rng.Intn(4); n > 0; n-- {
		fmt.Fprintf(&b, "- %s\n", sentence(rng, topic))
	}

	name := fmt.Sprintf("%s-%04d.md", subject, index)
	return os.WriteFile(filepath.Join(*outputDir, "docs", name), []byte(b.String()), 0o644)
}

func writeSource(rng *rand.Rand, index int) error {
	topic := pick(rng, topics)
	subject := pick(rng, subjects)
	action := pick(rng, actions)

	var b strings.Builder
	fmt.Fprintf(&b, "package %s%d\n\n", subject, index)
	fmt.Fprintf(&b, "// %s\n", sentence(rng, topic))
	fmt.Fprintf(&b, "type %s struct {\n\tname string\n\tsize int\n}\n\n", export(subject))
	fmt.Fprintf(&b, "// %s\n", sentence(rng, topic))
	fmt.Fprintf(&b, "func (x *%s) %s() int {\n\treturn x.size\n}\n", export(subject), export(action))

	name := fmt.Sprintf("%s_%04d.go", subject, index)
	return os.WriteFile(filepath.Join(*outputDir, "src", name), []byte(b.String()), 0o644)
}

// export capitalizes a pool word; pools are lowercase ASCII.
func export(s string) string {
	return strings.ToUpper(s[:1]) + s[1:]
}
