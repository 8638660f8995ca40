package browser

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "checkout.json")

	in := &sessionSnapshot{
		SavedAt: time.Now().UTC().Truncate(time.Second),
		URL:     "https://shop.example/cart",
		Cookies: []Cookie{
			{Name: "sid", Value: "abc123", Domain: "shop.example", Path: "/", Secure: true, SameSite: "Lax"},
			{Name: "theme", Value: "dark", Domain: "shop.example", Path: "/", Expires: 1924992000},
		},
		LocalStorage: map[string]string{"cart": `["sku-1","sku-2"]`},
	}

	require.NoError(t, writeSnapshot(path, in), "missing parent directories are created")

	out, err := readSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, in.URL, out.URL)
	assert.Equal(t, in.Cookies, out.Cookies)
	assert.Equal(t, in.LocalStorage, out.LocalStorage)
	assert.True(t, in.SavedAt.Equal(out.SavedAt))
}

func TestReadSnapshotMissing(t *testing.T) {
	_, err := readSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestStorageEntriesFiltersNonStrings(t *testing.T) {
	entries := storageEntries(map[string]any{
		"token": "xyz",
		"count": float64(3),
		"flag":  true,
	})
	assert.Equal(t, map[string]string{"token": "xyz"}, entries)

	assert.Empty(t, storageEntries(nil))
	assert.Empty(t, storageEntries("not a map"))
}

func TestReencode(t *testing.T) {
	loose := []any{
		map[string]any{"text": "Home", "href": "https://example.com/"},
		map[string]any{"text": "Docs", "href": "https://example.com/docs"},
	}

	var links []PageLink
	require.NoError(t, reencode(loose, &links))
	require.Len(t, links, 2)
	assert.Equal(t, PageLink{Text: "Docs", Href: "https://example.com/docs"}, links[1])

	var untouched []PageLink
	require.NoError(t, reencode(nil, &untouched))
	assert.Nil(t, untouched)
}
