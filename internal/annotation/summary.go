package annotation

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Summary aggregates annotation counts for the operator report.
type Summary struct {
	Total     int
	Annotated int
	Illegible int
	BySubset  map[string]int
	ByClass   map[string]int
}

// Summarize computes counts over the in-memory collection. Call
// LoadExisting first to rebuild from disk truth.
func (s *Store) Summarize() Summary {
	sum := Summary{
		BySubset: map[string]int{},
		ByClass:  map[string]int{},
	}
	for _, a := range s.annotations {
		sum.Total++
		switch a.Status {
		case StatusAnnotated:
			sum.Annotated++
		case StatusIllegible:
			sum.Illegible++
		}
		sum.BySubset[a.Subset]++
		sum.ByClass[a.ClassName]++
	}
	return sum
}

// ExportSummary reloads the collection from disk and writes a plain-text
// report next to the annotations file.
func (s *Store) ExportSummary(path string) error {
	if err := s.LoadExisting(); err != nil {
		return err
	}
	sum := s.Summarize()

	var b strings.Builder
	b.WriteString("EXPIRY DATE ANNOTATION SUMMARY\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Total annotations: %d\n", sum.Total)
	fmt.Fprintf(&b, "With legible date: %d\n", sum.Annotated)
	fmt.Fprintf(&b, "Illegible: %d\n\n", sum.Illegible)

	b.WriteString("By subset:\n")
	for _, subset := range sortedKeys(sum.BySubset) {
		fmt.Fprintf(&b, "  - %s: %d\n", subset, sum.BySubset[subset])
	}

	b.WriteString("\nBy class:\n")
	for _, class := range sortedKeys(sum.ByClass) {
		fmt.Fprintf(&b, "  - %s: %d\n", class, sum.ByClass[class])
	}

	fmt.Fprintf(&b, "\nAnnotations file: %s\n", s.path)

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
