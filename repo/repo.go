/*
   Copyright layoutdist authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package repo generates and signs repositories the update client can
// consume: role keys, root and targets metadata in consistent-snapshot
// layout, and the published target files. This tooling runs offline, before
// any client does.
package repo

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"github.com/tuf-in-toto/layoutdist/internal/util"
	"github.com/tuf-in-toto/layoutdist/metadata"
	"github.com/tuf-in-toto/layoutdist/signerverifier"
)

const (
	MetadataDirName = "metadata"
	TargetsDirName  = "targets"
	keysDirName     = "keys"
)

// Repository is an in-progress repository: generated keys, registered
// targets, and current role versions. Publish writes the signed metadata
// for the current state; BumpVersion plus another Publish models a metadata
// update.
type Repository struct {
	dir      string
	cfg      *Config
	signers  map[string][]dsse.SignerVerifier
	keys     map[string]metadata.Key
	roles    map[string]metadata.RoleInfo
	targets  map[string]metadata.TargetEntry
	versions map[string]int64

	// Now is the clock used for expiry stamps. Overridable in tests.
	Now func() time.Time
}

// Init creates the repository directory layout, generates role keys per the
// config, and registers the configured targets. A nil config generates the
// canonical example repository.
func Init(dir string, cfg *Config) (*Repository, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	applyDefaults(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid repository config: %w", err)
	}
	for _, sub := range []string{MetadataDirName, TargetsDirName, keysDirName} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create repository directory: %w", err)
		}
	}
	r := &Repository{
		dir:      dir,
		cfg:      cfg,
		signers:  make(map[string][]dsse.SignerVerifier),
		keys:     make(map[string]metadata.Key),
		roles:    make(map[string]metadata.RoleInfo),
		targets:  make(map[string]metadata.TargetEntry),
		versions: make(map[string]int64),
		Now:      time.Now,
	}
	for _, role := range metadata.TopLevelRoles {
		count := 1
		if role == metadata.RoleRoot {
			count += cfg.ExtraRootKeys
		}
		if err := r.genRoleKeys(role, count, cfg.Thresholds[role]); err != nil {
			return nil, err
		}
		r.versions[role] = 1
	}
	if cfg.Layout != nil {
		if err := r.emitLayout(cfg.Layout); err != nil {
			return nil, err
		}
	}
	for _, target := range cfg.Targets {
		if err := r.AddTargetFile(target.Path, target.Source); err != nil {
			return nil, err
		}
	}
	if cfg.VersionConstraints != "" {
		if err := r.AddTargetData("version-constraints", []byte(cfg.VersionConstraints+"\n")); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Repository) Dir() string {
	return r.dir
}

// AddTargetFile publishes the file at source under the target path.
func (r *Repository) AddTargetFile(path, source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read target source %s: %w", source, err)
	}
	return r.AddTargetData(path, data)
}

// AddTargetData publishes data under the target path, recording its length
// and hashes for the targets metadata.
func (r *Repository) AddTargetData(path string, data []byte) error {
	if err := validateTargetPath(path); err != nil {
		return err
	}
	dest := filepath.Join(r.dir, TargetsDirName, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write target file %s: %w", dest, err)
	}
	r.targets[path] = metadata.TargetEntry{
		Hashes: map[string]string{
			"sha256": util.SHA256Hex(data),
			"sha512": util.SHA512Hex(data),
		},
		Length: int64(len(data)),
	}
	return nil
}

// BumpVersion increments a role's metadata version for the next Publish.
func (r *Repository) BumpVersion(role string) {
	r.versions[role]++
}

// Version returns a role's current metadata version.
func (r *Repository) Version(role string) int64 {
	return r.versions[role]
}

// Publish signs and writes the metadata documents for the repository's
// current state, both under their consistent-snapshot names and as the
// latest <role>.json.
func (r *Repository) Publish(ctx context.Context) error {
	now := r.Now().UTC().Truncate(time.Second)
	root := &metadata.RootPayload{
		Common: metadata.Common{
			Type:    metadata.RoleRoot,
			Version: r.versions[metadata.RoleRoot],
			Expires: now.AddDate(0, 0, r.cfg.ExpiryDays[metadata.RoleRoot]),
		},
		Keys:  r.keys,
		Roles: r.roles,
	}
	if err := r.writeSigned(ctx, metadata.RoleRoot, root); err != nil {
		return err
	}
	targets := &metadata.TargetsPayload{
		Common: metadata.Common{
			Type:    metadata.RoleTargets,
			Version: r.versions[metadata.RoleTargets],
			Expires: now.AddDate(0, 0, r.cfg.ExpiryDays[metadata.RoleTargets]),
		},
		Targets: r.targets,
	}
	return r.writeSigned(ctx, metadata.RoleTargets, targets)
}

// InitialRoot returns the first published root document, the bytes a client
// pins out-of-band.
func (r *Repository) InitialRoot() ([]byte, error) {
	return os.ReadFile(filepath.Join(r.dir, MetadataDirName, metadata.VersionedFilename(metadata.RoleRoot, 1)))
}

func (r *Repository) genRoleKeys(role string, count, threshold int) error {
	info := metadata.RoleInfo{Threshold: threshold}
	for i := 0; i < count; i++ {
		sv, err := signerverifier.GenKeyPair()
		if err != nil {
			return fmt.Errorf("failed to generate %s key: %w", role, err)
		}
		keyID, key, err := signerverifier.NewMetadataKey(sv)
		if err != nil {
			return err
		}
		r.keys[keyID] = *key
		info.KeyIDs = append(info.KeyIDs, keyID)
		r.signers[role] = append(r.signers[role], sv)

		name := fmt.Sprintf("%s.pem", role)
		if i > 0 {
			name = fmt.Sprintf("%s-%d.pem", role, i+1)
		}
		if err := r.writePrivateKey(name, sv); err != nil {
			return err
		}
	}
	r.roles[role] = info
	return nil
}

func (r *Repository) writePrivateKey(name string, sv dsse.SignerVerifier) error {
	pemBytes, err := signerverifier.EncodePrivateKey(sv)
	if err != nil {
		return err
	}
	path := filepath.Join(r.dir, keysDirName, name)
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return fmt.Errorf("failed to write private key %s: %w", path, err)
	}
	return nil
}

func (r *Repository) writeSigned(ctx context.Context, role string, payload any) error {
	doc, err := metadata.NewDocument(payload)
	if err != nil {
		return err
	}
	canonical, err := doc.PayloadBytes()
	if err != nil {
		return err
	}
	for _, signer := range r.signers[role] {
		sig, err := signer.Sign(ctx, canonical)
		if err != nil {
			return fmt.Errorf("failed to sign %s metadata: %w", role, err)
		}
		keyID, err := signer.KeyID()
		if err != nil {
			return err
		}
		doc.Signatures = append(doc.Signatures, metadata.Signature{
			KeyID: keyID,
			Sig:   hex.EncodeToString(sig),
		})
	}
	data, err := doc.Bytes()
	if err != nil {
		return err
	}
	metadataDir := filepath.Join(r.dir, MetadataDirName)
	versioned := filepath.Join(metadataDir, metadata.VersionedFilename(role, r.versions[role]))
	if err := os.WriteFile(versioned, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", versioned, err)
	}
	latest := filepath.Join(metadataDir, metadata.Filename(role))
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", latest, err)
	}
	return nil
}
