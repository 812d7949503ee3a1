package repo

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuf-in-toto/layoutdist/internal/util"
	"github.com/tuf-in-toto/layoutdist/metadata"
	"github.com/tuf-in-toto/layoutdist/signerverifier"
	"github.com/tuf-in-toto/layoutdist/trust"
)

func publishDefault(t *testing.T) *Repository {
	t.Helper()
	r, err := Init(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, r.Publish(context.Background()))
	return r
}

func TestInitDefaultRepository(t *testing.T) {
	r := publishDefault(t)

	for _, name := range []string{
		filepath.Join(MetadataDirName, "1.root.json"),
		filepath.Join(MetadataDirName, "root.json"),
		filepath.Join(MetadataDirName, "1.targets.json"),
		filepath.Join(MetadataDirName, "targets.json"),
		filepath.Join(TargetsDirName, "root.layout"),
		filepath.Join(TargetsDirName, "alice.pub"),
		filepath.Join("keys", "root.pem"),
		filepath.Join("keys", "targets.pem"),
		filepath.Join("keys", "alice.pem"),
	} {
		assert.FileExists(t, filepath.Join(r.Dir(), name))
	}
}

func TestPublishedMetadataVerifies(t *testing.T) {
	ctx := context.Background()
	r := publishDefault(t)
	evaluator := trust.NewEvaluator()

	rootBytes, err := r.InitialRoot()
	require.NoError(t, err)
	rootDoc, err := metadata.Parse(rootBytes)
	require.NoError(t, err)
	rootPayload, err := evaluator.VerifySelfSigned(ctx, rootDoc)
	require.NoError(t, err)

	targetsBytes, err := os.ReadFile(filepath.Join(r.Dir(), MetadataDirName, "targets.json"))
	require.NoError(t, err)
	targetsDoc, err := metadata.Parse(targetsBytes)
	require.NoError(t, err)
	require.NoError(t, evaluator.Accept(ctx, metadata.RoleTargets, nil, targetsDoc, rootPayload))
}

func TestTargetEntriesMatchFiles(t *testing.T) {
	r := publishDefault(t)

	targetsBytes, err := os.ReadFile(filepath.Join(r.Dir(), MetadataDirName, "targets.json"))
	require.NoError(t, err)
	targetsDoc, err := metadata.Parse(targetsBytes)
	require.NoError(t, err)
	targets, err := targetsDoc.Targets()
	require.NoError(t, err)
	require.NotEmpty(t, targets.Targets)

	for path, entry := range targets.Targets {
		data, err := os.ReadFile(filepath.Join(r.Dir(), TargetsDirName, filepath.FromSlash(path)))
		require.NoError(t, err, "target %s", path)
		assert.Equal(t, int64(len(data)), entry.Length)
		assert.Equal(t, util.SHA256Hex(data), entry.Hashes["sha256"])
		assert.Equal(t, util.SHA512Hex(data), entry.Hashes["sha512"])
	}
}

func TestThresholdSigning(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ExtraRootKeys = 2
	cfg.Thresholds[metadata.RoleRoot] = 2

	r, err := Init(t.TempDir(), cfg)
	require.NoError(t, err)
	require.NoError(t, r.Publish(ctx))

	rootBytes, err := r.InitialRoot()
	require.NoError(t, err)
	rootDoc, err := metadata.Parse(rootBytes)
	require.NoError(t, err)
	assert.Len(t, rootDoc.Signatures, 3)

	rootPayload, err := trust.NewEvaluator().VerifySelfSigned(ctx, rootDoc)
	require.NoError(t, err)
	assert.Equal(t, 2, rootPayload.Roles[metadata.RoleRoot].Threshold)
	assert.Len(t, rootPayload.Roles[metadata.RoleRoot].KeyIDs, 3)
}

func TestLayoutTarget(t *testing.T) {
	r := publishDefault(t)

	layoutBytes, err := os.ReadFile(filepath.Join(r.Dir(), TargetsDirName, "root.layout"))
	require.NoError(t, err)
	var mb in_toto.Metablock
	require.NoError(t, json.Unmarshal(layoutBytes, &mb))
	require.Len(t, mb.Signatures, 1)

	pubBytes, err := os.ReadFile(filepath.Join(r.Dir(), TargetsDirName, "alice.pub"))
	require.NoError(t, err)
	_, err = signerverifier.ParsePublicKey(pubBytes)
	require.NoError(t, err)
}

func TestCustomTargets(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("release notes"), 0o644))

	cfg := DefaultConfig()
	cfg.Layout = nil
	cfg.Targets = []TargetConfig{{Path: "docs/notes.txt", Source: src}}

	r, err := Init(t.TempDir(), cfg)
	require.NoError(t, err)
	require.NoError(t, r.Publish(ctx))

	assert.FileExists(t, filepath.Join(r.Dir(), TargetsDirName, "docs", "notes.txt"))

	targetsBytes, err := os.ReadFile(filepath.Join(r.Dir(), MetadataDirName, "targets.json"))
	require.NoError(t, err)
	targetsDoc, err := metadata.Parse(targetsBytes)
	require.NoError(t, err)
	targets, err := targetsDoc.Targets()
	require.NoError(t, err)
	entry, ok := targets.Targets["docs/notes.txt"]
	require.True(t, ok)
	assert.Equal(t, int64(len("release notes")), entry.Length)
}

func TestConsistentSnapshotFilenames(t *testing.T) {
	ctx := context.Background()
	r := publishDefault(t)

	r.BumpVersion(metadata.RoleTargets)
	require.NoError(t, r.Publish(ctx))
	assert.Equal(t, int64(2), r.Version(metadata.RoleTargets))

	versioned, err := os.ReadFile(filepath.Join(r.Dir(), MetadataDirName, "2.targets.json"))
	require.NoError(t, err)
	latest, err := os.ReadFile(filepath.Join(r.Dir(), MetadataDirName, "targets.json"))
	require.NoError(t, err)
	assert.Equal(t, versioned, latest)

	// the previous version stays available
	assert.FileExists(t, filepath.Join(r.Dir(), MetadataDirName, "1.targets.json"))
}
