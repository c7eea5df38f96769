package catalog_test

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"bakery/catalog"
	apperrors "bakery/internal/errors"
	"bakery/testdata"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fs, err := testdata.NewImageFs()
	require.NoError(t, err)
	return fs
}

func TestScan(t *testing.T) {
	list, err := catalog.Scan(newFs(t), testdata.RootA, testdata.RootB)
	require.NoError(t, err)

	images := list.Items()
	require.Len(t, images, 4)

	type key struct{ name, dir string }
	var got []key
	for _, img := range images {
		got = append(got, key{img.Name, img.Directory})
	}
	assert.Equal(t, []key{
		{"alpine", "/srv/b/alpine"},
		{"raspios", "/srv/a/raspios"},
		{"raspios", "/srv/b/raspios"},
		{"ubuntu", "/srv/a/ubuntu"},
	}, got)

	raspios := images[1]
	assert.Equal(t, catalog.FormatGzip, raspios.Format)
	assert.Equal(t, "/srv/a/raspios/raspios.img.gz", raspios.Path())
	assert.Equal(t, []string{
		"/srv/a/raspios/raspios.post.01-host",
		"/srv/a/raspios/raspios.post.02-ssh",
	}, raspios.PostScripts)
	assert.Equal(t, []catalog.Variable{
		{Name: "HOSTNAME", Format: "Host: %s"},
		{Name: "USER", Format: "User: %s"},
	}, raspios.Variables)

	format, ok := raspios.Variable("USER")
	assert.True(t, ok)
	assert.Equal(t, "User: %s", format)

	assert.Equal(t, catalog.FormatRaw, images[2].Format)
	assert.Equal(t, "/srv/a/ubuntu/ubuntu.img", images[3].Path())
	assert.Empty(t, images[3].PostScripts)
}

func TestScan_EdgeCases(t *testing.T) {
	t.Run("missing source is a configuration error", func(t *testing.T) {
		_, err := catalog.Scan(newFs(t), "/does/not/exist")
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ConfigurationError))
	})

	t.Run("empty source", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/empty", 0755))

		list, err := catalog.Scan(fs, "/empty")
		require.NoError(t, err)
		assert.Equal(t, 0, list.Len())
	})

	t.Run("dotted version names", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, testdata.WriteTree(fs, map[string]string{
			"/img/os/raspios-2023.05.img":           "",
			"/img/os/raspios-2023.05.post.10-final": "",
			"/img/os/raspios-2023.05.vars":          "NAME:Name %s\n",
		}))

		list, err := catalog.Scan(fs, "/img")
		require.NoError(t, err)
		require.Equal(t, 1, list.Len())

		img, _ := list.Current()
		assert.Equal(t, "raspios-2023.05", img.Name)
		assert.Equal(t, catalog.FormatRaw, img.Format)
		assert.Len(t, img.PostScripts, 1)
		assert.Len(t, img.Variables, 1)
	})

	t.Run("later vars line overrides", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, testdata.WriteTree(fs, map[string]string{
			"/img/x/x.img.gz": "",
			"/img/x/x.vars":   "A:first\nB:b\nA:second:with colon\n",
		}))

		list, err := catalog.Scan(fs, "/img")
		require.NoError(t, err)
		img, _ := list.Current()
		assert.Equal(t, []catalog.Variable{
			{Name: "A", Format: "second:with colon"},
			{Name: "B", Format: "b"},
		}, img.Variables)
	})

	t.Run("names that are not identifiers are skipped", func(t *testing.T) {
		var logs bytes.Buffer
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer slog.SetDefault(prev)

		fs := afero.NewMemMapFs()
		require.NoError(t, testdata.WriteTree(fs, map[string]string{
			"/img/x/x.img":  "",
			"/img/x/x.vars": " WIFI_SSID :SSID: %s\nWIFI SSID:bad\n2FA:bad\n",
		}))

		list, err := catalog.Scan(fs, "/img")
		require.NoError(t, err)
		img, _ := list.Current()
		assert.Equal(t, []catalog.Variable{{Name: "WIFI_SSID", Format: "SSID: %s"}}, img.Variables)
		assert.Contains(t, logs.String(), `name="WIFI SSID"`)
		assert.Contains(t, logs.String(), "name=2FA")
	})
}

func TestCatalog(t *testing.T) {
	c := catalog.New(newFs(t), []string{testdata.RootA, testdata.RootB}, nil)

	_, ok := c.Current()
	assert.False(t, ok, "empty before the first scan")

	require.NoError(t, c.Rescan())
	assert.Equal(t, 4, c.Len())

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "alpine", cur.Name)

	target, ok := c.Target()
	require.True(t, ok)
	assert.Equal(t, "alpine", target.Name, "current image is the target without a selection")

	next, _ := c.Next()
	c.Select()
	assert.True(t, c.CurrentIsSelected())
	c.Next()

	target, _ = c.Target()
	assert.Equal(t, next, target, "selection wins over the cursor")

	snap := c.Snapshot()
	assert.Len(t, snap.Images, 4)
	assert.Equal(t, 2, snap.Pointer)
	assert.Equal(t, 1, snap.Selected)
	assert.False(t, snap.ScannedAt.IsZero())

	img, ok := c.Find("ubuntu")
	assert.True(t, ok)
	assert.Equal(t, "/srv/a/ubuntu", img.Directory)

	img, ok = c.Find("/srv/b/raspios/raspios.img")
	assert.True(t, ok)
	assert.Equal(t, catalog.FormatRaw, img.Format)

	_, ok = c.Find("windows")
	assert.False(t, ok)
}

func TestCatalog_RescanKeepsListOnError(t *testing.T) {
	fs := newFs(t)
	c := catalog.New(fs, []string{testdata.RootA}, nil)
	require.NoError(t, c.Rescan())
	before := c.Len()

	rescans := 0
	c.Subscribe(func() { rescans++ })

	require.NoError(t, fs.RemoveAll(testdata.RootA))
	assert.Error(t, c.Rescan())
	assert.Equal(t, before, c.Len())
	assert.Equal(t, 0, rescans, "failed rescans are not announced")

	require.NoError(t, testdata.WriteTree(fs, map[string]string{
		filepath.Join(testdata.RootA, "new", "new.img"): "",
	}))
	require.NoError(t, c.Rescan())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, rescans)
}
