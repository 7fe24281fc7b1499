// Package artifacts reads and writes the identifier front matter of the
// markdown documents the index points at. It does not render bodies; a
// stub carries the front matter and a title heading only.
package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

// Status values written to front matter.
const (
	StatusDraft   = "draft"
	StatusReady   = "ready"
	StatusRunning = "running"
)

const delimiter = "---"

// FrontMatter is the YAML block at the top of an artifact.
type FrontMatter struct {
	ID      string     `yaml:"id"`
	Ref     string     `yaml:"ref,omitempty"`
	Kind    types.Kind `yaml:"kind,omitempty"`
	HumanID string     `yaml:"human_id,omitempty"`
	Slug    string     `yaml:"slug,omitempty"`
	Title   string     `yaml:"title"`
	Owner   string     `yaml:"owner,omitempty"`
	Parent  string     `yaml:"parent,omitempty"`
	Created time.Time  `yaml:"created"`
	Status  string     `yaml:"status,omitempty"`
}

// FromRecord builds the front matter for rec.
func FromRecord(rec types.IdentifierRecord, status string) FrontMatter {
	return FrontMatter{
		ID:      rec.ID,
		Ref:     rec.Ref(),
		Kind:    rec.Kind,
		HumanID: rec.HumanID,
		Slug:    rec.Slug,
		Title:   rec.Title,
		Owner:   rec.Owner,
		Parent:  rec.ParentID,
		Created: rec.CreatedAt.UTC(),
		Status:  status,
	}
}

// FileName returns the artifact file name for rec: the dated reference
// followed by the slug.
func FileName(rec types.IdentifierRecord) string {
	return rec.RefWithSlug() + ".md"
}

// PathFor returns where rec lives under root, in slash form.
func PathFor(root string, rec types.IdentifierRecord) string {
	return filepath.ToSlash(filepath.Join(root, rec.Kind.Dir(), FileName(rec)))
}

// WriteStub creates the artifact at rec.Path holding only front matter and
// a title heading. It never overwrites; an existing file yields
// ErrArtifactExists.
func WriteStub(rec types.IdentifierRecord, status string) error {
	path := filepath.FromSlash(rec.Path)
	if path == "" {
		return fmt.Errorf("%w: record %s has no path", types.ErrInvalidRecord, rec.ID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}

	content, err := render(FromRecord(rec, status), []byte("\n# "+rec.Title+"\n"))
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", types.ErrArtifactExists, path)
	}
	if err != nil {
		return fmt.Errorf("creating artifact %s: %w", path, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("writing artifact %s: %w", path, err)
	}
	return f.Close()
}

func render(fm FrontMatter, body []byte) ([]byte, error) {
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	return join(head, body), nil
}

func join(head, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(delimiter + "\n")
	b.Write(head)
	b.WriteString(delimiter + "\n")
	b.Write(body)
	return b.Bytes()
}

// split separates the YAML block from the body. The file must open with a
// "---" line and close the block with another.
func split(data []byte) (head, body []byte, err error) {
	text := string(data)
	first, rest, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimRight(first, "\r \t") != delimiter {
		return nil, nil, types.ErrNoFrontMatter
	}
	offset := len(first) + 1
	for len(rest) > 0 {
		line, next, _ := strings.Cut(rest, "\n")
		if strings.TrimRight(line, "\r \t") == delimiter {
			bodyStart := min(offset+len(line)+1, len(data))
			return data[len(first)+1 : offset], data[bodyStart:], nil
		}
		offset += len(line) + 1
		rest = next
	}
	return nil, nil, fmt.Errorf("%w: block is not closed", types.ErrNoFrontMatter)
}

// Read parses the front matter of the artifact at path and returns it with
// the body that follows.
func Read(path string) (FrontMatter, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FrontMatter{}, nil, err
	}
	head, body, err := split(data)
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	var fm FrontMatter
	if err := yaml.Unmarshal(head, &fm); err != nil {
		return FrontMatter{}, nil, fmt.Errorf("%s: parsing front matter: %w", path, err)
	}
	return fm, body, nil
}

// SetStatus rewrites the status field of the artifact at path, adding it
// when absent. Other keys, their order, and the body are preserved. It
// reports whether the file changed.
func SetStatus(path, status string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	head, body, err := split(data)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(head, &doc); err != nil {
		return false, fmt.Errorf("%s: parsing front matter: %w", path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return false, fmt.Errorf("%s: %w: not a mapping", path, types.ErrNoFrontMatter)
	}
	m := doc.Content[0]

	changed := true
	found := false
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != "status" {
			continue
		}
		found = true
		if m.Content[i+1].Value == status {
			changed = false
		}
		m.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: status}
		break
	}
	if !found {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "status"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: status},
		)
	}
	if !changed {
		return false, nil
	}

	var out bytes.Buffer
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return false, fmt.Errorf("%s: encoding front matter: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return false, err
	}
	return true, writeAtomic(path, join(out.Bytes(), body))
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
