package bulletin

import "strings"

// Chunk is the slice of grades-table text belonging to one subject label.
// Found is false when the label (or an earlier one) never occurred in the
// table, in which case Text is empty and the record parser downstream yields
// a parse-error sentinel for that subject.
type Chunk struct {
	Label string
	Text  string
	Found bool
}

// SplitSubjects splits the grades-table region into one chunk per subject
// label, using the labels themselves as ordered literal delimiters: the chunk
// for label i is everything after its first occurrence up to the first
// occurrence of label i+1, and the last chunk runs to the end of the table.
//
// The result always has exactly len(labels) entries, in label order. If a
// label does not occur after the previous one, that chunk and every chunk
// after it come back with Found=false instead of an error — segmentation
// degrades per subject, it never fails.
func SplitSubjects(table string, labels []string) []Chunk {
	chunks := make([]Chunk, len(labels))
	for i, label := range labels {
		chunks[i].Label = label
	}

	pos := 0
	for i, label := range labels {
		idx := strings.Index(table[pos:], label)
		if idx < 0 {
			// Ordered split: once a delimiter is missing, everything
			// after it is unattributable.
			return chunks
		}
		start := pos + idx + len(label)

		end := len(table)
		if i+1 < len(labels) {
			if next := strings.Index(table[start:], labels[i+1]); next >= 0 {
				end = start + next
			}
		}

		chunks[i].Text = strings.TrimSpace(table[start:end])
		chunks[i].Found = true
		pos = start
	}
	return chunks
}
