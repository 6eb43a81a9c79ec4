package commands_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"taskboard/internal/commands"
	"taskboard/internal/config"
	"taskboard/internal/engine"
	"taskboard/internal/exitcode"
	"taskboard/internal/repository"
	"taskboard/internal/task"
	"taskboard/internal/telemetry"
	"taskboard/internal/testutil"
)

// newSession opens a fallback-mode session over fake without loading it.
func newSession(t *testing.T, fake *testutil.FakeStore) *commands.Session {
	t.Helper()
	repo, err := repository.Open(context.Background(), repository.Options{
		Mode:     repository.ModeFallback,
		Fallback: fake,
	})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	sess := commands.NewSession(engine.New(repo, engine.Options{}), repo.Mode(), telemetry.Discard(), nil)
	t.Cleanup(sess.Close)
	return sess
}

// loadedSession is newSession followed by a successful load.
func loadedSession(t *testing.T, fake *testutil.FakeStore) *commands.Session {
	t.Helper()
	sess := newSession(t, fake)
	if err := sess.Engine.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return sess
}

func testConfig(t *testing.T, quiet bool) *config.Config {
	t.Helper()
	return &config.Config{Dir: t.TempDir(), Quiet: quiet, Settings: config.DefaultSettings()}
}

// runCommand parses argv with the command's flags and runs it.
func runCommand(t *testing.T, cmd commands.Command, cfg *config.Config, sess *commands.Session, argv ...string) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(argv); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), cfg, sess, fs.Args(), &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func expect(t *testing.T, gotCode, wantCode int, gotErr, wantErr string) {
	t.Helper()
	if gotCode != wantCode {
		t.Errorf("expected exit code %d, got %d (stderr %q)", wantCode, gotCode, gotErr)
	}
	if gotErr != wantErr {
		t.Errorf("expected stderr %q, got %q", wantErr, gotErr)
	}
}

func mustFind(t *testing.T, tasks []task.Task, id int) task.Task {
	t.Helper()
	got, ok := task.Find(tasks, id)
	if !ok {
		t.Fatalf("task %d not found", id)
	}
	return got
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, testConfig(t, false), nil)
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "taskboard 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, testConfig(t, false), nil)
	expect(t, code, exitcode.Success, stderr, "")
	if !strings.Contains(stdout, "Usage:") {
		t.Error("help output should contain 'Usage:'")
	}
	for _, name := range []string{"list", "add", "edit", "rm", "move", "mode", "serve", "init"} {
		if !strings.Contains(stdout, "taskboard "+name) {
			t.Errorf("help output should mention %s", name)
		}
	}
}

func TestModeCommand(t *testing.T) {
	sess := loadedSession(t, testutil.NewSampleFakeStore())
	stdout, stderr, code := runCommand(t, &commands.ModeCmd{}, testConfig(t, false), sess)
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "fallback\n" {
		t.Errorf("expected fallback, got %q", stdout)
	}
}

func TestListCommand_SampleBoard(t *testing.T) {
	sess := loadedSession(t, testutil.NewSampleFakeStore())
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testConfig(t, false), sess)
	expect(t, code, exitcode.Success, stderr, "")
	testutil.GoldenString(t, "list_sample", stdout)
}

func TestListCommand_Search(t *testing.T) {
	sess := loadedSession(t, testutil.NewSampleFakeStore())
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testConfig(t, false), sess, "--search", "AUTH")
	expect(t, code, exitcode.Success, stderr, "")

	expected := "------------\nTO DO (0)\n------------\n" +
		"------------\nIN PROGRESS (1)\n------------\n" +
		"   6  Authentication flow\n" +
		"------------\nIN REVIEW (0)\n------------\n" +
		"------------\nDONE (0)\n------------\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
	if got := sess.State.Search(); got != "AUTH" {
		t.Errorf("search state = %q", got)
	}
}

func TestListCommand_FuzzySearch(t *testing.T) {
	sess := loadedSession(t, testutil.NewSampleFakeStore())
	stdout, _, code := runCommand(t, &commands.ListCmd{}, testConfig(t, false), sess, "-s", "drkmd", "--fuzzy")
	if code != exitcode.Success {
		t.Fatalf("expected success, got %d", code)
	}
	if !strings.Contains(stdout, "   8  Dark mode support\n") {
		t.Errorf("fuzzy search should find task 8, got %q", stdout)
	}
	if strings.Contains(stdout, "API integration") {
		t.Errorf("unexpected match in %q", stdout)
	}
}

func TestListCommand_NoMatch(t *testing.T) {
	sess := loadedSession(t, testutil.NewSampleFakeStore())
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testConfig(t, false), sess, "--search", "zzz")
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "no tasks match \"zzz\"\n" {
		t.Errorf("got %q", stdout)
	}
}

func TestListCommand_EmptyBoard(t *testing.T) {
	tests := []struct {
		name  string
		quiet bool
		want  string
	}{
		{"normal", false, "no tasks found\n"},
		{"quiet", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := loadedSession(t, testutil.NewFakeStore())
			stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testConfig(t, tt.quiet), sess)
			expect(t, code, exitcode.Success, stderr, "")
			if stdout != tt.want {
				t.Errorf("expected %q, got %q", tt.want, stdout)
			}
		})
	}
}

func TestListCommand_LoadFailed(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	fake.ListErr = errors.New("connection refused")
	sess := newSession(t, fake)
	if err := sess.Engine.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testConfig(t, false), sess)
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if !strings.HasPrefix(stderr, "error: backend error: ") || !strings.Contains(stderr, "connection refused") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestAddCommand(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, testConfig(t, false), sess,
		"--column", "review", "-d", " soon ", "Write", "docs")
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "created 11\n" {
		t.Errorf("expected created 11, got %q", stdout)
	}

	got := mustFind(t, fake.Snapshot(), 11)
	want := task.Task{ID: 11, Title: "Write docs", Description: "soon", Column: task.Review, Position: 3}
	if got != want {
		t.Errorf("stored %+v, want %+v", got, want)
	}
	if _, ok := task.Find(sess.Engine.Tasks(), 11); !ok {
		t.Error("created task missing from the cache after reconciliation")
	}
	if sess.State.Modal().Open {
		t.Error("dialog should be closed after success")
	}
}

func TestAddCommand_DefaultsToBacklog(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	_, stderr, code := runCommand(t, &commands.AddCmd{}, testConfig(t, true), sess, "Quick", "one")
	expect(t, code, exitcode.Success, stderr, "")

	got := mustFind(t, fake.Snapshot(), 11)
	if got.Column != task.Backlog || got.Position != 6 {
		t.Errorf("placed at %s/%d, want backlog/6", got.Column, got.Position)
	}
}

func TestAddCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCode int
		wantErr  string
	}{
		{"no title", nil, exitcode.UserError, "error: title required\n"},
		{"blank title", []string{"  "}, exitcode.UserError, "error: title required\n"},
		{"unknown column", []string{"--column", "archive", "x"}, exitcode.UserError, "error: unknown column: archive\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewSampleFakeStore()
			sess := loadedSession(t, fake)
			stdout, stderr, code := runCommand(t, &commands.AddCmd{}, testConfig(t, false), sess, tt.argv...)
			expect(t, code, tt.wantCode, stderr, tt.wantErr)
			if stdout != "" {
				t.Errorf("expected no stdout, got %q", stdout)
			}
			if n := fake.Calls("create"); n != 0 {
				t.Errorf("store called %d times", n)
			}
		})
	}
}

func TestAddCommand_BackendFailure(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	fake.CreateErr = &task.TransportError{Op: "create", Status: 503}
	sess := loadedSession(t, fake)

	_, stderr, code := runCommand(t, &commands.AddCmd{}, testConfig(t, false), sess, "x")
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(sess.Engine.Tasks()) != 10 {
		t.Errorf("cache changed after failed create")
	}
}

func TestEditCommand_TitleOnly(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	stdout, stderr, code := runCommand(t, &commands.EditCmd{}, testConfig(t, false), sess, "--title", "  Login flow ", "6")
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}

	got := mustFind(t, fake.Snapshot(), 6)
	want := task.Task{ID: 6, Title: "Login flow", Description: "Implement login, signup, and password reset screens", Column: task.InProgress, Position: 1}
	if got != want {
		t.Errorf("stored %+v, want %+v", got, want)
	}
}

func TestEditCommand_ClearDescription(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, testConfig(t, true), sess, "-d", "", "#2")
	expect(t, code, exitcode.Success, stderr, "")

	got := mustFind(t, fake.Snapshot(), 2)
	if got.Title != "Unit tests" || got.Description != "" {
		t.Errorf("stored %+v", got)
	}
}

func TestEditCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCode int
		wantErr  string
	}{
		{"no id", []string{"--title", "x"}, exitcode.UserError, "error: task id required\n"},
		{"bad id", []string{"--title", "x", "abc"}, exitcode.UserError, "error: invalid task id: abc\n"},
		{"nothing to change", []string{"3"}, exitcode.UserError, "error: nothing to change (use --title or --description)\n"},
		{"missing task", []string{"--title", "x", "99"}, exitcode.UserError, "error: task 99 not found\n"},
		{"blank title", []string{"--title", " ", "3"}, exitcode.UserError, "error: invalid task title: required\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewSampleFakeStore()
			sess := loadedSession(t, fake)
			_, stderr, code := runCommand(t, &commands.EditCmd{}, testConfig(t, false), sess, tt.argv...)
			expect(t, code, tt.wantCode, stderr, tt.wantErr)
			if n := fake.Calls("update"); n != 0 {
				t.Errorf("store called %d times", n)
			}
		})
	}
}

func TestRmCommand(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, testConfig(t, false), sess, "4")
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}
	if _, ok := task.Find(fake.Snapshot(), 4); ok {
		t.Error("task 4 still stored")
	}
	if len(sess.Engine.Tasks()) != 9 {
		t.Errorf("cache has %d tasks", len(sess.Engine.Tasks()))
	}
}

func TestRmCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCode int
		wantErr  string
	}{
		{"no id", nil, exitcode.UserError, "error: task id required\n"},
		{"bad id", []string{"abc"}, exitcode.UserError, "error: invalid task id: abc\n"},
		{"zero", []string{"0"}, exitcode.UserError, "error: invalid task id: 0\n"},
		{"extra arg", []string{"1", "2"}, exitcode.UserError, "error: unexpected argument: 2\n"},
		{"missing task", []string{"42"}, exitcode.UserError, "error: task 42 not found\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewSampleFakeStore()
			sess := loadedSession(t, fake)
			_, stderr, code := runCommand(t, &commands.RmCmd{}, testConfig(t, false), sess, tt.argv...)
			expect(t, code, tt.wantCode, stderr, tt.wantErr)
			if n := fake.Calls("delete"); n != 0 {
				t.Errorf("store called %d times", n)
			}
		})
	}
}

func TestRmCommand_BackendFailureRestoresTask(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	fake.DeleteErrFor[3] = &task.TransportError{Op: "delete", Status: 500}
	sess := loadedSession(t, fake)

	_, stderr, code := runCommand(t, &commands.RmCmd{}, testConfig(t, false), sess, "3")
	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	mustFind(t, sess.Engine.Tasks(), 3)
}

func TestMoveCommand_ToColumn(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	stdout, stderr, code := runCommand(t, &commands.MoveCmd{}, testConfig(t, false), sess, "--column", "done", "1")
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "ok\n" {
		t.Errorf("expected ok, got %q", stdout)
	}

	got := mustFind(t, fake.Snapshot(), 1)
	if got.Column != task.Done || got.Position != 1 {
		t.Errorf("placed at %s/%d, want done/1", got.Column, got.Position)
	}
}

func TestMoveCommand_OntoSibling(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	_, stderr, code := runCommand(t, &commands.MoveCmd{}, testConfig(t, true), sess, "--onto", "1", "3")
	expect(t, code, exitcode.Success, stderr, "")

	var order []int
	for _, tk := range task.InColumn(sess.Engine.Tasks(), task.Backlog) {
		order = append(order, tk.ID)
	}
	want := []int{3, 1, 2, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("backlog = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("backlog = %v, want %v", order, want)
		}
	}
}

func TestMoveCommand_Noop(t *testing.T) {
	fake := testutil.NewSampleFakeStore()
	sess := loadedSession(t, fake)

	stdout, stderr, code := runCommand(t, &commands.MoveCmd{}, testConfig(t, false), sess, "--column", "backlog", "2")
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "nothing to move\n" {
		t.Errorf("got %q", stdout)
	}
	if n := fake.Calls("update"); n != 0 {
		t.Errorf("store called %d times", n)
	}
}

func TestMoveCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantErr string
	}{
		{"no destination", []string{"1"}, "error: destination required (use --column or --onto)\n"},
		{"both", []string{"--column", "done", "--onto", "2", "1"}, "error: cannot use both --column and --onto\n"},
		{"unknown column", []string{"--column", "archive", "1"}, "error: unknown column: archive\n"},
		{"bad onto", []string{"--onto", "x", "1"}, "error: invalid task id: x\n"},
		{"missing onto", []string{"--onto", "50", "1"}, "error: task 50 not found\n"},
		{"missing task", []string{"--column", "done", "50"}, "error: task 50 not found\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := loadedSession(t, testutil.NewSampleFakeStore())
			_, stderr, code := runCommand(t, &commands.MoveCmd{}, testConfig(t, false), sess, tt.argv...)
			expect(t, code, exitcode.UserError, stderr, tt.wantErr)
		})
	}
}

func TestInitCommand(t *testing.T) {
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvMode, "")
	cfg := testConfig(t, false)

	stdout, stderr, code := runCommand(t, &commands.InitCmd{}, cfg, nil, "--api-url", "http://tasks:9000", "--mode", "network")
	expect(t, code, exitcode.Success, stderr, "")
	if stdout != "wrote "+cfg.SettingsPath()+"\n" {
		t.Errorf("got %q", stdout)
	}

	loaded, err := config.Load(cfg.Dir)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if loaded.Settings.APIURL != "http://tasks:9000" || loaded.Settings.Mode != "network" {
		t.Errorf("settings = %+v", loaded.Settings)
	}

	_, stderr, code = runCommand(t, &commands.InitCmd{}, cfg, nil)
	if code != exitcode.UserError || !strings.Contains(stderr, "already exists") {
		t.Errorf("expected refusal, got %d %q", code, stderr)
	}

	_, stderr, code = runCommand(t, &commands.InitCmd{}, cfg, nil, "--force")
	expect(t, code, exitcode.Success, stderr, "")
}

func TestInitCommand_InvalidMode(t *testing.T) {
	cfg := testConfig(t, false)
	_, stderr, code := runCommand(t, &commands.InitCmd{}, cfg, nil, "--mode", "offline")
	if code != exitcode.UserError || !strings.Contains(stderr, "unknown mode") {
		t.Errorf("expected mode error, got %d %q", code, stderr)
	}
	if cfg.HasSettings() {
		t.Error("invalid config was written")
	}
}

func TestServeCommand(t *testing.T) {
	cmd := &commands.ServeCmd{}
	addrs := make(chan net.Addr, 1)
	cmd.SetReady(func(a net.Addr) { addrs <- a })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse([]string{"--addr", "127.0.0.1:0"}); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t, false)
	var outBuf, errBuf bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- cmd.Run(ctx, cfg, nil, fs.Args(), &outBuf, &errBuf)
	}()

	var addr net.Addr
	select {
	case addr = <-addrs:
	case code := <-done:
		t.Fatalf("serve exited early with %d: %s", code, errBuf.String())
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr.String() + "/tasks")
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	var tasks []task.Task
	err = json.NewDecoder(resp.Body).Decode(&tasks)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 10 {
		t.Errorf("expected the sample board, got %d tasks", len(tasks))
	}

	cancel()
	select {
	case code := <-done:
		if code != exitcode.Success {
			t.Errorf("expected exit code %d, got %d: %s", exitcode.Success, code, errBuf.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if !strings.HasPrefix(outBuf.String(), "serving http://127.0.0.1:") {
		t.Errorf("unexpected stdout %q", outBuf.String())
	}
}

func TestParseTaskID(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr string
	}{
		{[]string{"7"}, 7, ""},
		{[]string{"#12"}, 12, ""},
		{nil, 0, "task id required"},
		{[]string{"a1"}, 0, "invalid task id: a1"},
		{[]string{"-3"}, 0, "invalid task id: -3"},
		{[]string{"#"}, 0, "invalid task id: #"},
		{[]string{"0"}, 0, "invalid task id: 0"},
		{[]string{"1", "2"}, 0, "unexpected argument: 2"},
	}
	for _, tt := range tests {
		got, err := commands.ParseTaskID(tt.args)
		if tt.wantErr != "" {
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("ParseTaskID(%q) error = %v, want %q", tt.args, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseTaskID(%q) = %d, %v; want %d", tt.args, got, err, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.RmCmd{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&commands.RmCmd{}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if cmd, ok := r.Find("delete"); !ok || cmd.Name() != "rm" {
		t.Error("alias lookup failed")
	}

	var names []string
	for _, c := range commands.DefaultRegistry.All() {
		names = append(names, c.Name())
	}
	want := "add edit help init list mode move rm serve version"
	if strings.Join(names, " ") != want {
		t.Errorf("commands = %v, want %s", names, want)
	}
}
