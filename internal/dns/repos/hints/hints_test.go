package hints

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	store, err := Load("", "")
	require.NoError(t, err)

	servers := store.RootServers()
	// Thirteen root servers, each with an IPv4 and an IPv6 address.
	require.Len(t, servers, 26)
	assert.Equal(t, "a.root-servers.net", servers[0].Host)
	assert.Equal(t, "[2001:503:ba3e::2:30]:53", servers[0].Addr)
	// The preferred family comes first: all IPv6, then all IPv4.
	assert.True(t, strings.Contains(servers[0].Addr, "["))
	assert.False(t, strings.Contains(servers[13].Addr, "["))
	assert.Equal(t, "198.41.0.4:53", servers[13].Addr)

	anchors := store.TrustAnchors("")
	require.Len(t, anchors, 2)
	assert.Equal(t, uint16(20326), anchors[0].KeyTag)
	assert.Equal(t, uint8(8), anchors[0].Algorithm)
	assert.Equal(t, uint8(2), anchors[0].DigestType)
	assert.Len(t, anchors[0].Digest, 32)

	assert.Nil(t, store.TrustAnchors("example.com"))
	assert.Equal(t, []string{""}, store.AnchorZones())
}

func TestLoadRootHintsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hints.yaml")
	content := `
servers:
  - name: ns.lab.internal
    ipv4: 10.0.0.53
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := Load(path, "")
	require.NoError(t, err)
	servers := store.RootServers()
	require.Len(t, servers, 1)
	assert.Equal(t, "ns.lab.internal", servers[0].Host)
	assert.Equal(t, "10.0.0.53:53", servers[0].Addr)
}

func TestLoadTrustAnchorsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchors.json")
	content := `{"anchors":[{"zone":"lab.internal","key_tag":12345,"algorithm":13,"digest_type":2,"digest":"AABB"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := Load("", path)
	require.NoError(t, err)
	anchors := store.TrustAnchors("Lab.Internal")
	require.Len(t, anchors, 1)
	assert.Equal(t, uint16(12345), anchors[0].KeyTag)
	assert.Equal(t, []byte{0xAA, 0xBB}, anchors[0].Digest)
	assert.Equal(t, []string{"lab.internal"}, store.AnchorZones())
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "hints.ini")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
	_, err := Load(bad, "")
	assert.ErrorContains(t, err, "unsupported")

	badIP := filepath.Join(dir, "hints.json")
	require.NoError(t, os.WriteFile(badIP, []byte(`{"servers":[{"name":"x","ipv4":"not-an-ip"}]}`), 0o644))
	_, err = Load(badIP, "")
	assert.ErrorContains(t, err, "bad IPv4")

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"servers":[]}`), 0o644))
	_, err = Load(empty, "")
	assert.ErrorContains(t, err, "no servers")

	badDigest := filepath.Join(dir, "anchors.json")
	require.NoError(t, os.WriteFile(badDigest, []byte(`{"anchors":[{"zone":"","key_tag":1,"algorithm":8,"digest_type":2,"digest":"zz"}]}`), 0o644))
	_, err = Load("", badDigest)
	assert.ErrorContains(t, err, "bad digest")
}
