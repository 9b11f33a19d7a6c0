package trace

import "sort"

// Label is one of A, B, C, … assigned to an anonymized Stage-1 answer.
type Label string

// LabelMap is a bijection between labels and the council models that
// produced a non-error Stage-1 answer, assigned in config index order and
// stable for the lifetime of one run.
type LabelMap struct {
	labelToModel map[Label]string
	modelToLabel map[string]Label
	order        []Label
}

// NewLabelMap assigns labels A, B, C, … to modelIDs in the given order. It
// never skips a label for a skipped model: callers must already have
// filtered out errored Stage-1 answers before calling this.
func NewLabelMap(modelIDs []string) LabelMap {
	lm := LabelMap{
		labelToModel: make(map[Label]string, len(modelIDs)),
		modelToLabel: make(map[string]Label, len(modelIDs)),
		order:        make([]Label, 0, len(modelIDs)),
	}
	for i, modelID := range modelIDs {
		label := Label(rune('A' + i))
		lm.labelToModel[label] = modelID
		lm.modelToLabel[modelID] = label
		lm.order = append(lm.order, label)
	}
	return lm
}

// Labels returns the assigned labels in assignment order.
func (lm LabelMap) Labels() []Label {
	out := make([]Label, len(lm.order))
	copy(out, lm.order)
	return out
}

// ModelFor returns the model id behind a label.
func (lm LabelMap) ModelFor(label Label) (string, bool) {
	m, ok := lm.labelToModel[label]
	return m, ok
}

// LabelFor returns the label assigned to a model id.
func (lm LabelMap) LabelFor(modelID string) (Label, bool) {
	l, ok := lm.modelToLabel[modelID]
	return l, ok
}

// ToMap returns a copy of the label→model mapping, for embedding into a
// DecisionTrace. It is never exposed to a judge prompt.
func (lm LabelMap) ToMap() map[Label]string {
	out := make(map[Label]string, len(lm.labelToModel))
	for k, v := range lm.labelToModel {
		out[k] = v
	}
	return out
}

// IsPermutationOf reports whether candidate is exactly a permutation of
// lm's labels: same length, same set, no duplicates.
func (lm LabelMap) IsPermutationOf(candidate []Label) bool {
	if len(candidate) != len(lm.order) {
		return false
	}
	seen := make(map[Label]bool, len(candidate))
	for _, l := range candidate {
		if _, ok := lm.labelToModel[l]; !ok {
			return false
		}
		if seen[l] {
			return false
		}
		seen[l] = true
	}
	return true
}

// SortedLabels returns lm's labels in lexicographic order, used for
// tie-breaking and for the sorted(j.parsed_ranking) == sorted(labels) check.
func (lm LabelMap) SortedLabels() []Label {
	out := lm.Labels()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
