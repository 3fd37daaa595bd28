package stores

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pe "wuyrush.io/valentine/errors"
)

func TestAllowedVideo(t *testing.T) {
	tcs := []struct {
		filename string
		allowed  bool
	}{
		{"clip.mp4", true},
		{"clip.MOV", true},
		{"a.b.webm", true},
		{"movie.mkv", true},
		{"old.avi", true},
		{"image.gif", false},
		{"script.mp4.sh", false},
		{"mp4", false},
		{"", false},
	}
	for _, c := range tcs {
		t.Run(c.filename, func(t *testing.T) {
			assert.Equal(t, c.allowed, AllowedVideo(c.filename))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentType("2abc_clip.MP4"))
	assert.Equal(t, "video/quicktime", ContentType("2abc_clip.mov"))
	assert.Equal(t, "video/webm", ContentType("2abc_clip.webm"))
	assert.Equal(t, "application/octet-stream", ContentType("2abc_noext"))
}

func TestSanitizeFilename(t *testing.T) {
	tcs := []struct {
		name     string
		filename string
		expected string
	}{
		{name: "Plain", filename: "clip.mp4", expected: "clip.mp4"},
		{name: "Spaces", filename: "our first date.mp4", expected: "our_first_date.mp4"},
		{name: "UnixPath", filename: "../../etc/passwd", expected: "passwd"},
		{name: "WindowsPath", filename: `C:\Users\me\clip.mov`, expected: "clip.mov"},
		{name: "Hidden", filename: ".hidden.mp4", expected: "hidden.mp4"},
		{name: "NonASCII", filename: "café♥.webm", expected: "caf.webm"},
		{name: "NothingLeft", filename: "♥♥♥", expected: "upload"},
	}
	for _, c := range tcs {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, SanitizeFilename(c.filename))
		})
	}
}

func TestLocalFileStore_Ref(t *testing.T) {
	fs := &LocalFileStore{Dir: t.TempDir()}
	r1, r2 := fs.Ref("our date.mp4"), fs.Ref("our date.mp4")
	assert.NotEqual(t, r1, r2)
	assert.True(t, strings.HasSuffix(r1, "_our_date.mp4"))
	assert.True(t, validRef(r1))
}

func TestLocalFileStore_SaveGetDelete(t *testing.T) {
	fs, err := NewLocalFileStore(filepath.Join(t.TempDir(), "uploads"), 0)
	require.NoError(t, err)
	ref := fs.Ref("clip.mp4")
	data := []byte("not really a video")

	require.Nil(t, fs.Save(ref, bytes.NewReader(data)))
	rc, perr := fs.Get(ref)
	require.Nil(t, perr)
	got, err := ioutil.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.Nil(t, fs.Delete(ref))
	require.Nil(t, fs.Delete(ref), "Delete must be idempotent")
	_, perr = fs.Get(ref)
	require.NotNil(t, perr)
	assert.Equal(t, pe.ErrCodeNotFound, perr.Code)
}

func TestLocalFileStore_Oversized(t *testing.T) {
	dir := t.TempDir()
	fs := &LocalFileStore{Dir: dir, MaxBytes: 8}
	ref := fs.Ref("clip.mp4")

	perr := fs.Save(ref, bytes.NewReader(make([]byte, 9)))
	require.NotNil(t, perr)
	assert.Equal(t, pe.ErrCodeOversized, perr.Code)
	_, err := os.Stat(filepath.Join(dir, ref))
	assert.True(t, os.IsNotExist(err), "partial file must be removed")

	assert.Nil(t, fs.Save(ref, bytes.NewReader(make([]byte, 8))))
}

func TestLocalFileStore_RefuseTraversal(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "uploads")
	fs, err := NewLocalFileStore(dir, 0)
	require.NoError(t, err)
	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, ioutil.WriteFile(secret, []byte("secret"), 0600))

	for _, ref := range []string{"../secret.txt", "..", "a/b.mp4", `..\secret.txt`, ""} {
		t.Run(ref, func(t *testing.T) {
			_, perr := fs.Get(ref)
			require.NotNil(t, perr)
			assert.Equal(t, pe.ErrCodeNotFound, perr.Code)
			perr = fs.Save(ref, bytes.NewReader([]byte("x")))
			require.NotNil(t, perr)
			assert.Equal(t, pe.ErrCodeValidation, perr.Code)
			assert.NotNil(t, fs.Delete(ref))
		})
	}
	_, err = os.Stat(secret)
	assert.NoError(t, err)
}
