package features

import "sort"

// EncodeCategoricals one-hot encodes every text column of f and returns only
// the encoded columns. Categories are sorted and the first one of each
// column is dropped. Encoded columns are named <column>_<category>; a row
// whose value is missing is zero in every column of its group.
func EncodeCategoricals(f *Frame) *Frame {
	out := NewFrame(f.Rows())
	for _, s := range f.Series() {
		if s.Kind != Text {
			continue
		}
		for _, cat := range categories(s)[1:] {
			values := make([]float64, s.Len())
			for i, v := range s.Str {
				if !s.Null[i] && v == cat {
					values[i] = 1
				}
			}
			_ = out.Add(NewNumeric(s.Name+"_"+cat, values))
		}
	}
	return out
}

// TextColumns returns the names of the text columns of f.
func TextColumns(f *Frame) []string {
	var names []string
	for _, s := range f.Series() {
		if s.Kind == Text {
			names = append(names, s.Name)
		}
	}
	return names
}

// categories returns the sorted distinct present values, with an empty
// leading entry when there are none so callers can always skip the first.
func categories(s *Series) []string {
	seen := make(map[string]bool)
	var cats []string
	for i, v := range s.Str {
		if s.Null[i] || seen[v] {
			continue
		}
		seen[v] = true
		cats = append(cats, v)
	}
	if len(cats) == 0 {
		return []string{""}
	}
	sort.Strings(cats)
	return cats
}
