package optionlists

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Search filters records whose value or label contains query, case
// insensitively. Prefix matches come first, then label order.
func Search(records []Record, query string, limit int, opts Options) []Record {
	limit = opts.pageSize(limit)
	if limit == 0 {
		return nil
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		if opts.EmptySearchMode != EmptySearchAll {
			return nil
		}
		return slices.Clone(records[:min(limit, len(records))])
	}

	type hit struct {
		record Record
		label  string
		prefix bool
	}
	var hits []hit
	for _, record := range records {
		label := text(record[opts.LabelField])
		haystacks := [2]string{strings.ToLower(label), strings.ToLower(text(record[opts.ValueField]))}
		if !strings.Contains(haystacks[0], query) && !strings.Contains(haystacks[1], query) {
			continue
		}
		hits = append(hits, hit{
			record: record,
			label:  label,
			prefix: strings.HasPrefix(haystacks[0], query) || strings.HasPrefix(haystacks[1], query),
		})
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		if a.prefix != b.prefix {
			if a.prefix {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.label, b.label)
	})

	out := make([]Record, 0, min(limit, len(hits)))
	for _, h := range hits[:min(limit, len(hits))] {
		out = append(out, h.record)
	}
	return out
}

// Find returns the record whose value field equals value.
func Find(records []Record, value string, opts Options) (Record, bool) {
	idx := slices.IndexFunc(records, func(record Record) bool {
		return text(record[opts.ValueField]) == value
	})
	if idx < 0 {
		return nil, false
	}
	return records[idx], true
}

func text(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
