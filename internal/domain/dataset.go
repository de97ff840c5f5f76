package domain

import "sort"

// DatasetInfo describes a dataset known to the analytics platform.
type DatasetInfo struct {
	ID      int      `json:"id" yaml:"id"`
	Columns []string `json:"columns" yaml:"columns"`
}

// NewDatasetInfo builds a DatasetInfo with a sorted, de-duplicated column set.
func NewDatasetInfo(id int, columns []string) DatasetInfo {
	seen := make(map[string]struct{}, len(columns))
	cols := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return DatasetInfo{ID: id, Columns: cols}
}

// Catalog maps table names to dataset metadata.
type Catalog map[string]DatasetInfo

// IDs returns the set of dataset ids in the catalog.
func (c Catalog) IDs() map[int]struct{} {
	ids := make(map[int]struct{}, len(c))
	for _, info := range c {
		ids[info.ID] = struct{}{}
	}
	return ids
}

// NameByID returns the table name registered for id.
func (c Catalog) NameByID(id int) (string, bool) {
	for name, info := range c {
		if info.ID == id {
			return name, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, info := range c {
		cols := make([]string, len(info.Columns))
		copy(cols, info.Columns)
		out[name] = DatasetInfo{ID: info.ID, Columns: cols}
	}
	return out
}
