// Package format renders change lists and version logs as compact text for
// the CLI.
package format

import (
	"fmt"
	"io"

	"schemaver/internal/diff"
	"schemaver/internal/store"
)

// TextFormatter writes human-readable renderings of diff and store results.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Changes writes one line per change record.
func (f *TextFormatter) Changes(changes []diff.Change) error {
	for _, c := range changes {
		if _, err := fmt.Fprintf(f.writer, "  %s\n", describeChange(c)); err != nil {
			return err
		}
	}
	return nil
}

// Summaries writes the version log, one line per version, ascending.
func (f *TextFormatter) Summaries(summaries []store.Summary) error {
	for _, s := range summaries {
		desc := s.Description
		if desc == "" {
			desc = "(no description)"
		}
		_, err := fmt.Fprintf(f.writer, "v%d  %s  %s  %d schemas, %d changes\n",
			s.Version, s.Timestamp.Format("2006-01-02 15:04:05"), desc, s.SchemaCount, s.ChangeCount)
		if err != nil {
			return err
		}
	}
	return nil
}

func describeChange(c diff.Change) string {
	switch c.Action {
	case diff.SchemaAdded:
		return fmt.Sprintf("+ schema %s", c.Schema)
	case diff.SchemaRemoved:
		return fmt.Sprintf("- schema %s", c.Schema)
	case diff.SchemaModified:
		return fmt.Sprintf("~ schema %s (%v -> %v)", c.Schema, c.From, c.To)
	case diff.PropertyAdded:
		return fmt.Sprintf("+ %s.%s", c.Schema, c.Property)
	case diff.PropertyRemoved:
		return fmt.Sprintf("- %s.%s", c.Schema, c.Property)
	case diff.PropertyModified:
		return fmt.Sprintf("~ %s.%s", c.Schema, c.Property)
	case diff.PropertyRenamed:
		return fmt.Sprintf("> %s.%v -> %s.%v", c.Schema, c.From, c.Schema, c.To)
	case diff.IndexAdded:
		return fmt.Sprintf("+ index %s on %s", c.Property, c.Schema)
	case diff.IndexRemoved:
		return fmt.Sprintf("- index %s on %s", c.Property, c.Schema)
	case diff.IndexModified:
		return fmt.Sprintf("~ index %s on %s", c.Property, c.Schema)
	case diff.OptionChanged:
		return fmt.Sprintf("~ %s option %s (%v -> %v)", c.Schema, c.Property, c.From, c.To)
	}
	return fmt.Sprintf("? %s %s", c.Action, c.Schema)
}
