package metadata

// Field is one extracted metadata entry.
type Field struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Category string `json:"category"`
}

// Document collects everything extracted from one file.
type Document struct {
	Path   string  `json:"path"`
	Format string  `json:"format"`
	Fields []Field `json:"fields"`
}

// FieldsInCategory returns the fields whose Category matches.
func (d *Document) FieldsInCategory(category string) []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// ClearResult reports what a clear operation wrote.
type ClearResult struct {
	OutputPath    string `json:"output_path"`
	RemovedFields int    `json:"removed_fields"`
}

// DefaultCleanSuffix is appended to the source filename stem when a clear
// operation is called without an output path.
const DefaultCleanSuffix = "_clean"
