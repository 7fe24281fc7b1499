package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mesh-intelligence/waymark/internal/artifacts"
	"github.com/mesh-intelligence/waymark/pkg/types"
)

// recordView is a record as printed: the stored fields plus the derived
// reference and, when the artifact is readable, its status.
type recordView struct {
	types.IdentifierRecord
	Ref    string `json:"ref"`
	Status string `json:"status,omitempty"`
}

func viewOf(rec types.IdentifierRecord) recordView {
	v := recordView{IdentifierRecord: rec, Ref: rec.Ref()}
	if fm, _, err := artifacts.Read(rec.Path); err == nil {
		v.Status = fm.Status
	}
	return v
}

func viewsOf(recs []types.IdentifierRecord) []recordView {
	out := make([]recordView, 0, len(recs))
	for _, r := range recs {
		out = append(out, viewOf(r))
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// writeRecord prints one record as aligned key/value lines.
func writeRecord(w io.Writer, v recordView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ref:\t%s\n", v.Ref)
	fmt.Fprintf(tw, "ID:\t%s\n", v.ID)
	fmt.Fprintf(tw, "Kind:\t%s\n", v.Kind)
	if v.HumanID != "" {
		fmt.Fprintf(tw, "Human ID:\t%s\n", v.HumanID)
	}
	fmt.Fprintf(tw, "Slug:\t%s\n", v.Slug)
	fmt.Fprintf(tw, "Title:\t%s\n", v.Title)
	fmt.Fprintf(tw, "Path:\t%s\n", v.Path)
	fmt.Fprintf(tw, "Created:\t%s\n", v.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	if v.Owner != "" {
		fmt.Fprintf(tw, "Owner:\t%s\n", v.Owner)
	}
	if v.ParentID != "" {
		fmt.Fprintf(tw, "Parent:\t%s\n", v.ParentID)
	}
	if v.Status != "" {
		fmt.Fprintf(tw, "Status:\t%s\n", v.Status)
	}
	tw.Flush()
}

// writeTable prints records one per line.
func writeTable(w io.Writer, views []recordView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tHUMAN\tTITLE\tOWNER\tSTATUS")
	fmt.Fprintln(tw, "---\t-----\t-----\t-----\t------")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Ref, v.HumanID, v.Title, v.Owner, v.Status)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nTotal: %d\n", len(views))
}

// emitRecord prints one record as JSON or as key/value lines.
func (a *app) emitRecord(rec types.IdentifierRecord) error {
	v := viewOf(rec)
	if a.flags.jsonMode {
		return writeJSON(a.stdout, v)
	}
	writeRecord(a.stdout, v)
	return nil
}

// emitList prints records as JSON or as a table, or empty when there are none.
func (a *app) emitList(recs []types.IdentifierRecord, empty string) error {
	views := viewsOf(recs)
	if a.flags.jsonMode {
		return writeJSON(a.stdout, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(a.stdout, empty)
		return nil
	}
	writeTable(a.stdout, views)
	return nil
}
