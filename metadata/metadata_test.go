package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRootPayload() *RootPayload {
	return &RootPayload{
		Common: Common{
			Type:    RoleRoot,
			Version: 1,
			Expires: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Keys: map[string]Key{
			"abc": {KeyType: "ed25519", Scheme: "ed25519", Public: "-----BEGIN PUBLIC KEY-----\n"},
		},
		Roles: map[string]RoleInfo{
			RoleRoot:    {KeyIDs: []string{"abc"}, Threshold: 1},
			RoleTargets: {KeyIDs: []string{"abc"}, Threshold: 1},
		},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc, err := NewDocument(testRootPayload())
	require.NoError(t, err)
	doc.Signatures = []Signature{{KeyID: "abc", Sig: "00ff"}}

	data, err := doc.Bytes()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Signatures, parsed.Signatures)

	root, err := parsed.Root()
	require.NoError(t, err)
	assert.Equal(t, testRootPayload(), root)
}

func TestPayloadBytesStable(t *testing.T) {
	doc, err := NewDocument(testRootPayload())
	require.NoError(t, err)
	canonical, err := doc.PayloadBytes()
	require.NoError(t, err)

	// serialization must not change the bytes signatures cover
	data, err := doc.Bytes()
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)
	reparsed, err := parsed.PayloadBytes()
	require.NoError(t, err)
	assert.Equal(t, canonical, reparsed)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("not json"))
	require.Error(t, err)

	_, err = Parse([]byte(`{"signatures":[]}`))
	require.ErrorContains(t, err, "no signed portion")
}

func TestPayloadTypeChecks(t *testing.T) {
	doc, err := NewDocument(testRootPayload())
	require.NoError(t, err)

	_, err = doc.Targets()
	require.ErrorContains(t, err, `payload type "root" is not "targets"`)

	targetsDoc, err := NewDocument(&TargetsPayload{
		Common: Common{Type: RoleTargets, Version: 1, Expires: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
		Targets: map[string]TargetEntry{
			"alice.pub": {Hashes: map[string]string{"sha256": "aa"}, Length: 2},
		},
	})
	require.NoError(t, err)
	_, err = targetsDoc.Root()
	require.Error(t, err)

	targets, err := targetsDoc.Targets()
	require.NoError(t, err)
	assert.Equal(t, int64(2), targets.Targets["alice.pub"].Length)
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "root.json", Filename(RoleRoot))
	assert.Equal(t, "2.targets.json", VersionedFilename(RoleTargets, 2))
}
