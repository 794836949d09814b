package denylist

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFS struct {
	osFS
	stats    atomic.Int32
	reads    atomic.Int32
	writeErr error
	statErr  error
	readErr  error
}

func (c *countingFS) Stat(name string) (fs.FileInfo, error) {
	c.stats.Add(1)
	if c.statErr != nil {
		return nil, c.statErr
	}
	return c.osFS.Stat(name)
}

func (c *countingFS) ReadFile(name string) ([]byte, error) {
	c.reads.Add(1)
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.osFS.ReadFile(name)
}

func (c *countingFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	return c.osFS.WriteFile(name, data, perm)
}

type player struct {
	id   string
	name string
}

func players(ps ...player) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, p := range ps {
			if !yield(p.id, p.name) {
				return
			}
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// touch moves the file's modification time past the store's fence.
func touch(t *testing.T, s *Store) {
	t.Helper()
	next := s.LastModified().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(s.Path(), next, next))
}

func newFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blacklist.txt")
	writeFile(t, path, content)
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"comments and blanks", "# header\n\n   \n  # indented comment\n", nil},
		{"lowercases", "ToxicPlayer#BR1\n", []string{"toxicplayer#br1"}},
		{"trims whitespace and CRLF", "  Cheater#NA1 \r\n\tOther#EU1\t\r\n", []string{"cheater#na1", "other#eu1"}},
		{"bare CR", "ToxicPlayer#BR1\rCheater#NA1\r", []string{"toxicplayer#br1", "cheater#na1"}},
		{"mixed line endings", "A#1\rB#2\r\nC#3\n# note\rD#4", []string{"a#1", "b#2", "c#3", "d#4"}},
		{"duplicates collapse", "Foo#1\nfoo#1\nFOO#1\n", []string{"foo#1"}},
		{"byte order mark", "\uFEFFFirst#1\nSecond#2", []string{"first#1", "second#2"}},
		{"hash inside name", "Name#TAG # not a comment\n", []string{"name#tag # not a comment"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			assert.ElementsMatch(t, tt.want, keys(got))
		})
	}
}

func keys(m map[string]struct{}) []string {
	var out []string
	for k := range maps.Keys(m) {
		out = append(out, k)
	}
	return out
}

func TestNew_CreatesTemplateWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.txt")

	s := New(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fileTemplate, string(data))
	assert.Equal(t, 0, s.Size())
	assert.False(t, s.LastModified().IsZero())
}

func TestNew_DefaultPath(t *testing.T) {
	fsys := &countingFS{writeErr: errors.New("read-only")}
	s := New("", WithFS(fsys))
	assert.Equal(t, DefaultPath, s.Path())
}

func TestNew_KeepsExistingFile(t *testing.T) {
	content := "Cheater#NA1\n"
	path := newFile(t, content)

	s := New(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Equal(t, 1, s.Size())
	assert.True(t, s.IsMatch("cheater#na1"))
}

func TestNew_TemplateWriteFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	fsys := &countingFS{writeErr: errors.New("disk full")}

	s := New(filepath.Join(t.TempDir(), "blacklist.txt"), WithFS(fsys), WithLogger(logger))

	assert.Equal(t, 0, s.Size())
	assert.True(t, s.LastModified().IsZero())
	assert.Contains(t, logs.String(), "failed to create denylist file")
	assert.Contains(t, logs.String(), "disk full")
}

func TestIsMatch(t *testing.T) {
	s := New(newFile(t, "# comment\nToxicPlayer#BR1\ncheater#na1\n"))

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"original case", "ToxicPlayer#BR1", true},
		{"lower case", "toxicplayer#br1", true},
		{"upper case", "TOXICPLAYER#BR1", true},
		{"stored lower, queried mixed", "Cheater#NA1", true},
		{"absent", "Clean#NA1", false},
		{"partial", "ToxicPlayer", false},
		{"comment line", "# comment", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsMatch(tt.input))
		})
	}
}

func TestSize_OnlyComments(t *testing.T) {
	s := New(newFile(t, "# one\n\n#two\n   \n"))
	assert.Equal(t, 0, s.Size())
}

func TestSize_CaseDuplicates(t *testing.T) {
	s := New(newFile(t, "Foo#1\nfoo#1\n"))
	assert.Equal(t, 1, s.Size())
}

func TestReload_Idempotent(t *testing.T) {
	s := New(newFile(t, "A#1\nB#2\n"))

	s.Reload()
	first := s.Snapshot()
	s.Reload()
	second := s.Snapshot()

	assert.Equal(t, []string{"a#1", "b#2"}, first)
	assert.Equal(t, first, second)
}

func TestReload_ReplacesEntries(t *testing.T) {
	path := newFile(t, "Old#1\n")
	s := New(path)

	writeFile(t, path, "New#1\n")
	s.Reload()

	assert.False(t, s.IsMatch("old#1"))
	assert.True(t, s.IsMatch("new#1"))
}

func TestReload_MissingFileKeepsEntries(t *testing.T) {
	path := newFile(t, "Kept#1\n")
	s := New(path)
	require.NoError(t, os.Remove(path))

	s.Reload()

	assert.True(t, s.IsMatch("kept#1"))
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "reload must not recreate the file")
}

func TestReload_InvalidUTF8KeepsEntries(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	path := newFile(t, "Kept#1\n")
	s := New(path, WithLogger(logger))
	before := s.LastModified()

	require.NoError(t, os.WriteFile(path, []byte{'b', 'a', 'd', 0xff, 0xfe, '\n'}, 0644))
	touch(t, s)
	matches := s.CheckAll(players(player{"id1", "Kept#1"}))

	assert.Equal(t, []Match{{ID: "id1", Name: "Kept#1"}}, matches)
	assert.Equal(t, before, s.LastModified())
	assert.Contains(t, logs.String(), "failed to load denylist")
}

func TestReload_ReadFailureKeepsEntries(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	fsys := &countingFS{}
	s := New(newFile(t, "Kept#1\n"), WithFS(fsys), WithLogger(logger))
	before := s.LastModified()

	fsys.readErr = fs.ErrPermission
	s.Reload()

	assert.Contains(t, logs.String(), "failed to load denylist")
	assert.Contains(t, logs.String(), fs.ErrPermission.Error())
	assert.Equal(t, []string{"kept#1"}, s.Snapshot())
	assert.Equal(t, before, s.LastModified())

	touch(t, s)
	matches := s.CheckAll(players(player{"id1", "Kept#1"}))
	assert.Equal(t, []Match{{ID: "id1", Name: "Kept#1"}}, matches)

	fsys.readErr = nil
	writeFile(t, s.Path(), "Next#2\n")
	touch(t, s)
	matches = s.CheckAll(players(player{"id1", "Kept#1"}, player{"id2", "Next#2"}))
	assert.Equal(t, []Match{{ID: "id2", Name: "Next#2"}}, matches, "failed read must be retried")
}

func TestCheckAll_StatFailureKeepsEntries(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	fsys := &countingFS{}
	s := New(newFile(t, "Kept#1\n"), WithFS(fsys), WithLogger(logger))
	reads := fsys.reads.Load()

	fsys.statErr = fs.ErrPermission
	matches := s.CheckAll(players(player{"id1", "Kept#1"}, player{"id2", "Clean#2"}))

	assert.Equal(t, []Match{{ID: "id1", Name: "Kept#1"}}, matches)
	assert.Equal(t, []string{"kept#1"}, s.Snapshot())
	assert.Equal(t, reads, fsys.reads.Load())
	assert.Contains(t, logs.String(), "failed to check denylist file modification")
	assert.Contains(t, logs.String(), fs.ErrPermission.Error())
}

func TestCheckAll_RosterMayUseStore(t *testing.T) {
	s := New(newFile(t, "a#1\nb#2\n"))

	roster := func(yield func(string, string) bool) {
		for i := range s.Size() {
			if !yield(fmt.Sprint("p", i), fmt.Sprint("A#", i)) {
				return
			}
		}
		if s.IsMatch("b#2") {
			yield("pb", "B#2")
		}
	}

	done := make(chan []Match, 1)
	go func() {
		done <- s.CheckAll(roster)
	}()

	select {
	case matches := <-done:
		assert.Equal(t, []Match{{ID: "p1", Name: "A#1"}, {ID: "pb", Name: "B#2"}}, matches)
	case <-time.After(2 * time.Second):
		t.Fatal("CheckAll deadlocked on a roster that reads the store")
	}
}

func TestCheckAll(t *testing.T) {
	s := New(newFile(t, "toxicplayer#br1\n"))

	matches := s.CheckAll(maps.All(map[string]string{
		"id1": "ToxicPlayer#BR1",
		"id2": "Clean#NA1",
	}))

	assert.Equal(t, []Match{{ID: "id1", Name: "ToxicPlayer#BR1"}}, matches)
}

func TestCheckAll_EmptyRoster(t *testing.T) {
	s := New(newFile(t, "toxicplayer#br1\n"))

	matches := s.CheckAll(players())
	assert.NotNil(t, matches)
	assert.Empty(t, matches)

	matches = s.CheckAll(nil)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestCheckAll_PreservesRosterOrder(t *testing.T) {
	s := New(newFile(t, "a#1\nb#2\nc#3\n"))

	matches := s.CheckAll(players(
		player{"p3", "C#3"},
		player{"p0", "Clean#0"},
		player{"p1", "A#1"},
		player{"p2", "b#2"},
	))

	assert.Equal(t, []Match{
		{ID: "p3", Name: "C#3"},
		{ID: "p1", Name: "A#1"},
		{ID: "p2", Name: "b#2"},
	}, matches)
}

func TestCheckAll_ReloadsOnlyWhenModified(t *testing.T) {
	path := newFile(t, "First#1\n")
	fsys := &countingFS{}
	s := New(path, WithFS(fsys))
	require.Equal(t, int32(1), fsys.reads.Load())

	roster := players(player{"id1", "First#1"}, player{"id2", "Second#2"})

	writeFile(t, path, "Second#2\n")
	touch(t, s)
	matches := s.CheckAll(roster)
	assert.Equal(t, []Match{{ID: "id2", Name: "Second#2"}}, matches)
	assert.Equal(t, int32(2), fsys.reads.Load())

	stats := fsys.stats.Load()
	matches = s.CheckAll(roster)
	assert.Equal(t, []Match{{ID: "id2", Name: "Second#2"}}, matches)
	assert.Equal(t, int32(2), fsys.reads.Load(), "unchanged file must not be read again")
	assert.Equal(t, stats+1, fsys.stats.Load(), "one modification check per CheckAll")
}

func TestCheckAll_FileDeletedKeepsEntries(t *testing.T) {
	path := newFile(t, "Toxic#1\n")
	s := New(path)
	require.NoError(t, os.Remove(path))

	matches := s.CheckAll(players(player{"id1", "Toxic#1"}))

	assert.Equal(t, []Match{{ID: "id1", Name: "Toxic#1"}}, matches)
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCheckAll_FileReappears(t *testing.T) {
	path := newFile(t, "Old#1\n")
	s := New(path)
	require.NoError(t, os.Remove(path))
	s.CheckAll(players())

	writeFile(t, path, "New#1\n")
	touch(t, s)
	matches := s.CheckAll(players(player{"id1", "Old#1"}, player{"id2", "New#1"}))

	assert.Equal(t, []Match{{ID: "id2", Name: "New#1"}}, matches)
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := New(newFile(t, "A#1\nB#2\n"))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	snap[0] = "mutated"

	assert.Equal(t, []string{"a#1", "b#2"}, s.Snapshot())
	assert.False(t, s.IsMatch("mutated"))
}

func TestLogger_ReportsLoads(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	path := newFile(t, "A#1\n")
	s := New(path, WithLogger(logger))

	writeFile(t, path, "A#1\nB#2\n")
	touch(t, s)
	s.RefreshIfStale()

	out := logs.String()
	assert.Contains(t, out, "denylist loaded")
	assert.Contains(t, out, "denylist file modified, reloading")
	assert.Contains(t, out, "denylist entries changed")
	assert.Contains(t, out, "+b#2")
}

func TestEntriesDiff(t *testing.T) {
	same, err := entriesDiff(Parse("a\nb\n"), Parse("b\na\n"))
	require.NoError(t, err)
	assert.Empty(t, same)

	diff, err := entriesDiff(Parse("a\nb\n"), Parse("b\nc\n"))
	require.NoError(t, err)
	assert.Contains(t, diff, "-a\n")
	assert.Contains(t, diff, "+c\n")
	assert.NotContains(t, diff, "-b\n")
}
