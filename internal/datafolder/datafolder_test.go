package datafolder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T, files map[string]string) *Dir {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}
	return NewDir(root)
}

func snapshot(t *testing.T, gw Gateway) map[string]string {
	t.Helper()
	names, err := gw.List()
	require.NoError(t, err)
	out := make(map[string]string, len(names))
	for _, name := range names {
		b, err := gw.Read(name)
		require.NoError(t, err)
		out[name] = string(b)
	}
	return out
}

func TestDirReadWriteDelete(t *testing.T) {
	d := newTestDir(t, map[string]string{"engine.ini": "[A]\nX=1\n"})

	b, err := d.Read("engine.ini")
	require.NoError(t, err)
	assert.Equal(t, "[A]\nX=1\n", string(b))

	_, err = d.Read("missing.ini")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, d.Write("power.lut", []byte("1000|80\n")))
	names, err := d.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"engine.ini", "power.lut"}, names)

	require.NoError(t, d.Delete("power.lut"))
	assert.ErrorIs(t, d.Delete("power.lut"), ErrNotFound)
}

func TestDirRejectsEscapingNames(t *testing.T) {
	d := newTestDir(t, nil)
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := d.Read(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestOverlayIsolatesBase(t *testing.T) {
	d := newTestDir(t, map[string]string{"engine.ini": "original"})
	ov := Stage(d)

	require.NoError(t, ov.Write("engine.ini", []byte("staged")))
	require.NoError(t, ov.Write("new.lut", []byte("fresh")))

	// overlay sees staged content, base still sees originals
	b, err := ov.Read("engine.ini")
	require.NoError(t, err)
	assert.Equal(t, "staged", string(b))

	b, err = d.Read("engine.ini")
	require.NoError(t, err)
	assert.Equal(t, "original", string(b))

	_, err = d.Read("new.lut")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := ov.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"engine.ini", "new.lut"}, names)
}

func TestOverlayDelete(t *testing.T) {
	d := newTestDir(t, map[string]string{"engine.ini": "original"})
	ov := Stage(d)

	assert.ErrorIs(t, ov.Delete("missing"), ErrNotFound)
	require.NoError(t, ov.Delete("engine.ini"))

	_, err := ov.Read("engine.ini")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ov.Commit())
	_, err = d.Read("engine.ini")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOverlayCommitMakesAllWritesVisible(t *testing.T) {
	d := newTestDir(t, map[string]string{"engine.ini": "old-engine", "drivetrain.ini": "old-dt"})
	ov := Stage(d)

	require.NoError(t, ov.Write("engine.ini", []byte("new-engine")))
	require.NoError(t, ov.Write("drivetrain.ini", []byte("new-dt")))
	assert.True(t, ov.Dirty())
	assert.Equal(t, []string{"drivetrain.ini", "engine.ini"}, ov.Staged())

	require.NoError(t, ov.Commit())
	assert.False(t, ov.Dirty())

	assert.Equal(t, map[string]string{
		"engine.ini":     "new-engine",
		"drivetrain.ini": "new-dt",
	}, snapshot(t, d))

	// temp files are gone
	entries, err := os.ReadDir(d.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "stale temp %s", e.Name())
	}
}

func TestDirFlushFailureRestoresOriginals(t *testing.T) {
	d := newTestDir(t, map[string]string{
		"engine.ini":     "old-engine",
		"drivetrain.ini": "old-dt",
		"power.lut":      "1000|80\n",
	})
	before := snapshot(t, d)

	// fail the drivetrain.ini rename once, after engine.ini already landed
	injected := errors.New("disk gone")
	failed := false
	d.rename = func(oldpath, newpath string) error {
		if !failed && strings.HasSuffix(newpath, "drivetrain.ini") && strings.HasSuffix(oldpath, ".tmp") {
			failed = true
			return injected
		}
		return os.Rename(oldpath, newpath)
	}

	ov := Stage(d)
	require.NoError(t, ov.Write("engine.ini", []byte("new-engine")))
	require.NoError(t, ov.Write("drivetrain.ini", []byte("new-dt")))

	err := ov.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, injected)

	// bit-for-bit equal to the pre-commit state
	d.rename = os.Rename
	assert.Equal(t, before, snapshot(t, d))

	// staged set survives a failed commit
	assert.True(t, ov.Dirty())
}

func TestDirFlushFailureOnNewFileRemovesIt(t *testing.T) {
	d := newTestDir(t, map[string]string{"engine.ini": "old"})
	before := snapshot(t, d)

	injected := errors.New("disk gone")
	d.rename = func(oldpath, newpath string) error {
		if strings.HasSuffix(newpath, "zz-new.lut") {
			return injected
		}
		return os.Rename(oldpath, newpath)
	}

	ov := Stage(d)
	require.NoError(t, ov.Write("engine.ini", []byte("new")))
	require.NoError(t, ov.Write("zz-new.lut", []byte("fresh")))

	require.Error(t, ov.Commit())

	d.rename = os.Rename
	assert.Equal(t, before, snapshot(t, d))
}

func TestOverlayDiscard(t *testing.T) {
	d := newTestDir(t, map[string]string{"engine.ini": "old"})
	ov := Stage(d)

	require.NoError(t, ov.Write("engine.ini", []byte("new")))
	ov.Discard()
	assert.False(t, ov.Dirty())
	require.NoError(t, ov.Commit())

	b, err := d.Read("engine.ini")
	require.NoError(t, err)
	assert.Equal(t, "old", string(b))
}

func newTestAcd(t *testing.T, files map[string]string) *Acd {
	t.Helper()
	carDir := filepath.Join(t.TempDir(), "test_car")
	require.NoError(t, os.Mkdir(carDir, 0755))
	a, err := CreateAcd(filepath.Join(carDir, "data.acd"))
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, a.Write(name, []byte(content)))
	}
	return a
}

func TestAcdRoundTrip(t *testing.T) {
	a := newTestAcd(t, map[string]string{
		"engine.ini": "[ENGINE_DATA]\nLIMITER=7200\n",
		"power.lut":  "1000|80\n4000|220\n",
	})

	reopened, err := OpenAcd(a.Path())
	require.NoError(t, err)

	assert.Equal(t, snapshot(t, a), snapshot(t, reopened))

	b, err := reopened.Read("engine.ini")
	require.NoError(t, err)
	assert.Equal(t, "[ENGINE_DATA]\nLIMITER=7200\n", string(b))
}

func TestAcdHeaderBytes(t *testing.T) {
	a := newTestAcd(t, nil)

	raw, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 8)
	// negative magic first, little endian, then the layout version
	assert.Equal(t, []byte{0xa9, 0xfb, 0xff, 0xff}, raw[:4])
	assert.Equal(t, []byte{0x02, 0x00, 0x00, 0x00}, raw[4:8])
}

func TestAcdKeyDependsOnFolderName(t *testing.T) {
	a := newTestAcd(t, map[string]string{"engine.ini": "payload"})

	// move the archive under a differently named car folder; the key no
	// longer matches so the payload must not decode to the same bytes
	otherDir := filepath.Join(t.TempDir(), "other_car")
	require.NoError(t, os.Mkdir(otherDir, 0755))
	raw, err := os.ReadFile(a.Path())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(otherDir, "data.acd"), raw, 0644))

	reopened, err := OpenAcd(filepath.Join(otherDir, "data.acd"))
	require.NoError(t, err)
	b, err := reopened.Read("engine.ini")
	require.NoError(t, err)
	assert.NotEqual(t, "payload", string(b))
}

func TestAcdRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.acd")

	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0644))
	_, err := OpenAcd(path)
	assert.Error(t, err)

	_, err = OpenAcd(filepath.Join(dir, "absent.acd"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcdOverlayCommit(t *testing.T) {
	a := newTestAcd(t, map[string]string{"engine.ini": "old", "car.ini": "header"})
	ov := Stage(a)

	require.NoError(t, ov.Write("engine.ini", []byte("new")))
	require.NoError(t, ov.Delete("car.ini"))
	require.NoError(t, ov.Commit())

	reopened, err := OpenAcd(a.Path())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"engine.ini": "new"}, snapshot(t, reopened))
}

func TestDeriveKeyStability(t *testing.T) {
	k1 := deriveKey("abarth500")
	k2 := deriveKey("abarth500")
	k3 := deriveKey("ks_toyota_ae86")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 8)
	// case-insensitive, as the sim treats folder names
	assert.Equal(t, k1, deriveKey("Abarth500"))
}

func TestWriteSyncCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.tmp")
	require.NoError(t, writeSync(path, []byte("abc")))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}

func ExampleStage() {
	dir := NewDir(os.TempDir())
	ov := Stage(dir)
	_ = ov.Write("example.ini", []byte("[A]\nX=1\n"))
	fmt.Println(ov.Dirty())
	ov.Discard()
	// Output: true
}
