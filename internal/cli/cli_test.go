package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/waymark/pkg/types"
)

type testEnv struct {
	config string
	data   string
	root   string
}

func newEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	return testEnv{
		config: filepath.Join(dir, "config"),
		data:   filepath.Join(dir, "data"),
		root:   filepath.Join(dir, "ai_docs"),
	}
}

type result struct {
	stdout string
	stderr string
	code   int
}

func (e testEnv) run(t *testing.T, args ...string) result {
	t.Helper()
	var out, errb bytes.Buffer
	full := append([]string{
		"--config-dir", e.config,
		"--data-dir", e.data,
		"--artifact-root", e.root,
		"--owner", "tester",
	}, args...)
	code := Run(context.Background(), full, &out, &errb)
	return result{stdout: out.String(), stderr: errb.String(), code: code}
}

// record runs a command with --json and decodes its record output.
func (e testEnv) record(t *testing.T, args ...string) recordView {
	t.Helper()
	res := e.run(t, append([]string{"--json"}, args...)...)
	require.Equal(t, exitSuccess, res.code, "stderr: %s", res.stderr)
	var v recordView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &v), res.stdout)
	return v
}

func TestVersion(t *testing.T) {
	res := newEnv(t).run(t, "version")
	assert.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stdout, "waymark v")
	assert.Contains(t, res.stdout, modulePath)
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "init")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "waymark initialized")

	assert.FileExists(t, filepath.Join(e.config, "config.yaml"))
	assert.DirExists(t, e.data)
	for _, k := range types.Kinds {
		assert.DirExists(t, filepath.Join(e.root, k.Dir()))
	}

	res = e.run(t, "init")
	assert.Equal(t, exitSuccess, res.code, "init is idempotent")
}

func TestPlanSpecExecReadyRoundTrip(t *testing.T) {
	e := newEnv(t)

	plan := e.record(t, "plan", "Fix", "auth", "bug")
	assert.Equal(t, types.KindPlan, plan.Kind)
	assert.Equal(t, "P-0001", plan.HumanID)
	assert.Equal(t, "fix-auth-bug", plan.Slug)
	assert.Equal(t, "tester", plan.Owner)
	assert.Equal(t, "draft", plan.Status)
	assert.True(t, strings.HasPrefix(plan.Ref, "PLAN-"))
	assert.FileExists(t, plan.Path)

	spec := e.record(t, "spec", "Token refresh", "--plan", plan.Ref)
	assert.Equal(t, plan.ID, spec.ParentID)

	exec := e.record(t, "exec", spec.HumanID)
	assert.Equal(t, spec.ID, exec.ParentID)
	assert.Equal(t, "running", exec.Status)

	ready := e.record(t, "ready", "P-0001")
	assert.Equal(t, plan.ID, ready.ID)
	assert.Equal(t, "ready", ready.Status)

	shown := e.record(t, "show", plan.Slug)
	assert.Equal(t, plan.ID, shown.ID)

	res := e.run(t, "show", plan.Ref)
	require.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stdout, "Title:")
	assert.Contains(t, res.stdout, "Fix auth bug")
	assert.Contains(t, res.stdout, "Status:")

	res = e.run(t, "tree", plan.Ref)
	require.Equal(t, exitSuccess, res.code)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], plan.Ref))
	assert.True(t, strings.HasPrefix(lines[1], "  "+spec.Ref))
	assert.True(t, strings.HasPrefix(lines[2], "    "+exec.Ref))
	assert.Contains(t, lines[0], "[ready]")

	res = e.run(t, "log", "-n", "0")
	require.Equal(t, exitSuccess, res.code)
	assert.Equal(t, 4, strings.Count(res.stdout, "\n"), res.stdout)
	assert.Contains(t, res.stdout, "status")
}

func TestDo(t *testing.T) {
	e := newEnv(t)

	res := e.run(t, "do", "Add JWT authentication and mark ready")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Created PLAN-")

	res = e.run(t, "--json", "do", "spec for P-0001 'Database schema'")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	var out struct {
		Action string     `json:"action"`
		Record recordView `json:"record"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, "create_spec", out.Action)
	assert.Equal(t, "Database schema", out.Record.Title)
	assert.Equal(t, "database-schema", out.Record.Slug)

	res = e.run(t, "do", "spec for jwt")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "no plan reference resolvable")

	res = e.run(t, "do", "run the tests", "--last-spec", out.Record.Ref)
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Created EXEC-")
}

func TestRoute(t *testing.T) {
	e := newEnv(t)
	res := e.run(t, "route", "--explain", "execute", "SPEC-42")
	require.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stdout, `CreateExec{spec_id="SPEC-42"}`)
	assert.Contains(t, res.stdout, "rule: ")
	assert.NoDirExists(t, e.config, "route reads no config")

	res = e.run(t, "--json", "route", "ready")
	require.Equal(t, exitSuccess, res.code)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &v))
	assert.Equal(t, "create_plan", v["action"])
}

func TestUserErrors(t *testing.T) {
	e := newEnv(t)
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"spec needs --plan", []string{"spec", "orphan"}, "plan"},
		{"unknown plan", []string{"spec", "orphan", "--plan", "P-0099"}, "record not found"},
		{"unknown ref", []string{"show", "nope"}, "record not found"},
		{"bad kind", []string{"list", "--kind", "epic"}, "invalid kind"},
		{"bad since", []string{"list", "--since", "yesterday"}, "--since"},
		{"missing args", []string{"plan"}, "requires at least 1 arg"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.run(t, tt.args...)
			assert.Equal(t, exitUserError, res.code)
			assert.Contains(t, res.stderr, tt.msg)
		})
	}
}

func TestListFindAndCount(t *testing.T) {
	e := newEnv(t)
	plan := e.record(t, "plan", "Alpha")
	e.record(t, "plan", "Beta")
	e.record(t, "spec", "Alpha details", "--plan", plan.ID)

	res := e.run(t, "--json", "list", "--kind", "plan")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	var plans []recordView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &plans))
	require.Len(t, plans, 2)
	assert.Equal(t, "Alpha", plans[0].Title)

	res = e.run(t, "--json", "list", "--limit", "1", "--by-owner", "tester")
	require.Equal(t, exitSuccess, res.code)
	var limited []recordView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &limited))
	assert.Len(t, limited, 1)

	res = e.run(t, "list", "--count")
	require.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stdout, "plan  2")
	assert.Contains(t, res.stdout, "spec  1")
	assert.Contains(t, res.stdout, "exec  0")

	res = e.run(t, "--json", "find", "alpha")
	require.Equal(t, exitSuccess, res.code)
	var found []recordView
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &found))
	assert.Len(t, found, 2)

	res = e.run(t, "--json", "find", "alpha", "--kind", "spec")
	require.Equal(t, exitSuccess, res.code)
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &found))
	require.Len(t, found, 1)
	assert.Equal(t, types.KindSpec, found[0].Kind)

	res = e.run(t, "list", "--by-owner", "nobody")
	require.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stdout, "No records found.")
}

func TestRebuildAndValidate(t *testing.T) {
	e := newEnv(t)
	plan := e.record(t, "plan", "Rebuild me")
	e.record(t, "spec", "Child", "--plan", plan.Ref)

	before, err := os.ReadFile(filepath.Join(e.data, types.IndexFileName))
	require.NoError(t, err)

	res := e.run(t, "rebuild")
	require.Equal(t, exitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "2 record(s)")

	after, err := os.ReadFile(filepath.Join(e.data, types.IndexFileName))
	require.NoError(t, err)
	assert.Equal(t, len(strings.Split(string(before), "\n")), len(strings.Split(string(after), "\n")))

	res = e.run(t, "validate")
	assert.Equal(t, exitSuccess, res.code)
	assert.Contains(t, res.stdout, "Index is consistent.")

	f, err := os.OpenFile(filepath.Join(e.data, types.IndexFileName), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(after[:bytes.IndexByte(after, '\n')+1])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res = e.run(t, "validate")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stdout, "duplicate")
}

func TestConfigErrors(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(e.config, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.config, "config.yaml"), []byte("log_level: loud\n"), 0o644))
	res := e.run(t, "list")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, "log_level")

	require.NoError(t, os.WriteFile(filepath.Join(e.config, "config.yaml"), []byte("slug_max_length: 3\n"), 0o644))
	res = e.run(t, "list")
	assert.Equal(t, exitUserError, res.code)
	assert.Contains(t, res.stderr, types.ErrSlugMaxLenInvalid.Error())
}

func TestConfigDataDirFromFile(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	dataDir := filepath.Join(dir, "from-config")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("data_dir: "+dataDir+"\n"), 0o644))

	var out, errb bytes.Buffer
	code := Run(context.Background(), []string{
		"--config-dir", configDir,
		"--artifact-root", filepath.Join(dir, "ai_docs"),
		"plan", "Configured",
	}, &out, &errb)
	require.Equal(t, exitSuccess, code, errb.String())
	assert.FileExists(t, filepath.Join(dataDir, types.IndexFileName))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("plain"), exitUserError},
		{types.ErrNotFound, exitUserError},
		{types.ErrLockTimeout, exitSysError},
		{types.ErrClock, exitSysError},
		{&types.IndexWriteError{Op: "append", Path: "x", Err: errors.New("disk full")}, exitSysError},
		{&exitError{code: exitSysError, err: errors.New("boom")}, exitSysError},
		{userError("bad %s", "input"), exitUserError},
		{fmt.Errorf("writing artifact: %w", &fs.PathError{Op: "mkdir", Path: "x", Err: fs.ErrPermission}), exitSysError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestArtifactWriteFailureIsSystemError(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.WriteFile(e.root, []byte("not a directory"), 0o644))

	res := e.run(t, "plan", "Blocked stub")
	assert.Equal(t, exitSysError, res.code, "stderr: %s", res.stderr)
	assert.Contains(t, res.stderr, "writing artifact")
}

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 10, 14, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseSince("2025-10-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseSince("48h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-48*time.Hour), got)

	_, err = parseSince("soon", now)
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	got := summary(map[string]any{"id": "X", "title": "T", "ref": "PLAN-1", "kind": "plan", "path": "p"})
	assert.Equal(t, "ref=PLAN-1 title=T kind=plan", got)
}
