package extract

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/esafeeds/devenv/pkg/jj"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	commits []jj.Commit
	logErr  error
	files   map[string]string
	fail    map[string]error

	mu       sync.Mutex
	revset   string
	shown    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (s *fakeSource) Log(_ context.Context, revset string) ([]jj.Commit, error) {
	s.revset = revset
	return s.commits, s.logErr
}

func (s *fakeSource) FileShow(_ context.Context, rev, file string) ([]byte, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)

	s.mu.Lock()
	s.shown = append(s.shown, rev+":"+file)
	s.mu.Unlock()

	if err := s.fail[rev]; err != nil {
		return nil, err
	}
	return []byte(s.files[rev]), nil
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "1678886400_abcd1234.json", FileName(jj.Commit{ID: "abcd1234", Timestamp: "1678886400"}))
}

func TestRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "feeds")
	src := &fakeSource{
		commits: []jj.Commit{{ID: "aaa", Timestamp: "100"}, {ID: "bbb", Timestamp: "200"}},
		files:   map[string]string{"aaa": `[{"v":1}]`, "bbb": `[{"v":2}]`},
	}

	summary, err := Run(context.Background(), src, Options{OutputDir: out, File: "feed.json", Revset: "root()..@"})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Commits)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, []string{
		filepath.Join(out, "100_aaa.json"),
		filepath.Join(out, "200_bbb.json"),
	}, summary.Written)
	assert.Equal(t, "root()..@", src.revset)
	assert.ElementsMatch(t, []string{"aaa:feed.json", "bbb:feed.json"}, src.shown)

	data, err := os.ReadFile(filepath.Join(out, "200_bbb.json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"v":2}]`, string(data))
}

func TestRun_Defaults(t *testing.T) {
	opts := Options{}
	opts.setDefaults()
	assert.Equal(t, Options{OutputDir: "/tmp/esa-feeds", File: "feed.json", Concurrency: 50}, opts)
}

func TestRun_AggregatesFailures(t *testing.T) {
	out := t.TempDir()
	src := &fakeSource{
		commits: []jj.Commit{
			{ID: "aaa", Timestamp: "1"},
			{ID: "bbb", Timestamp: "2"},
			{ID: "ccc", Timestamp: "3"},
		},
		files: map[string]string{"bbb": "[]"},
		fail: map[string]error{
			"aaa": errors.New("no such path: feed.json at aaa"),
			"ccc": errors.New("no such path: feed.json at ccc"),
		},
	}

	summary, err := Run(context.Background(), src, Options{OutputDir: out})
	require.Error(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Contains(t, err.Error(), "2 of 3 extractions failed")
	assert.Contains(t, err.Error(), "at aaa")
	assert.Contains(t, err.Error(), "at ccc")
	assert.FileExists(t, filepath.Join(out, "2_bbb.json"))
	assert.NoFileExists(t, filepath.Join(out, "1_aaa.json"))
}

func TestRun_LogFailure(t *testing.T) {
	src := &fakeSource{logErr: errors.New("`jj log` failed")}

	summary, err := Run(context.Background(), src, Options{OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "failed to fetch commit history")
}

func TestRun_NoCommits(t *testing.T) {
	summary, err := Run(context.Background(), &fakeSource{}, Options{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, summary.Commits)
	assert.Empty(t, summary.Written)
}

func TestRun_RespectsConcurrency(t *testing.T) {
	src := &fakeSource{delay: 10 * time.Millisecond, files: map[string]string{}}
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		src.commits = append(src.commits, jj.Commit{ID: id, Timestamp: "1"})
		src.files[id] = "[]"
	}

	_, err := Run(context.Background(), src, Options{OutputDir: t.TempDir(), Concurrency: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, src.peak.Load(), int32(3))
}

func TestRun_OutputDirIsAFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Run(context.Background(), &fakeSource{}, Options{OutputDir: file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}
