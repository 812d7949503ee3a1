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

// Package update implements the update client: root-of-trust bootstrap,
// per-role metadata refresh, and verified target download. All decisions
// about accepting new metadata are delegated to the trust evaluator; all
// persistence goes through the metadata store.
package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tuf-in-toto/layoutdist/internal/util"
	"github.com/tuf-in-toto/layoutdist/metadata"
	"github.com/tuf-in-toto/layoutdist/store"
	"github.com/tuf-in-toto/layoutdist/trust"
)

const (
	rootMaxLength    = 512000
	targetsMaxLength = 5 << 20
	fetchTimeout     = 15 * time.Second
)

type ClientOptions struct {
	// InitialRoot is the pinned root document, supplied out-of-band.
	InitialRoot []byte
	// LocalStorageDir is where trusted metadata is persisted between runs.
	LocalStorageDir string
	// MetadataSource is the base URL role metadata is fetched from.
	MetadataSource string
	// TargetsSource is the base URL target files are fetched from.
	TargetsSource string
	// Fetcher overrides the transport. Defaults to the HTTP fetcher.
	Fetcher Fetcher
	// VersionChecker gates refresh on the repository's published version
	// constraints. Optional.
	VersionChecker VersionChecker
}

type Client struct {
	store       *store.Store
	evaluator   *trust.Evaluator
	fetcher     Fetcher
	checker     VersionChecker
	metadataURL string
	targetsURL  string

	mu        sync.Mutex
	roleLocks map[string]*sync.Mutex
}

// NewClient opens the local trust store and bootstraps it with the pinned
// initial root. Each distinct initial root gets its own store directory, so
// independent roots never share trusted state.
func NewClient(ctx context.Context, opts *ClientOptions) (*Client, error) {
	if len(opts.InitialRoot) == 0 {
		return nil, fmt.Errorf("initial root must be set")
	}
	if opts.LocalStorageDir == "" || opts.MetadataSource == "" || opts.TargetsSource == "" {
		return nil, fmt.Errorf("local storage dir, metadata source and targets source must be set")
	}
	storeDir := filepath.Join(opts.LocalStorageDir, util.SHA256Hex(opts.InitialRoot))
	st, err := store.New(storeDir)
	if err != nil {
		return nil, err
	}
	f := opts.Fetcher
	if f == nil {
		f = NewHTTPFetcher()
	}
	c := &Client{
		store:       st,
		evaluator:   trust.NewEvaluator(),
		fetcher:     f,
		checker:     opts.VersionChecker,
		metadataURL: strings.TrimSuffix(opts.MetadataSource, "/"),
		targetsURL:  strings.TrimSuffix(opts.TargetsSource, "/"),
		roleLocks:   make(map[string]*sync.Mutex),
	}
	if err := c.Bootstrap(ctx, opts.InitialRoot); err != nil {
		return nil, err
	}
	return c, nil
}

// Store exposes the client's trusted metadata store.
func (c *Client) Store() *store.Store {
	return c.store
}

// Bootstrap seeds the store with the pinned initial root. The pinned root
// must meet its own signature threshold. If a root is already stored, an
// identical pin is a no-op, a stored root with a higher version is kept
// (rotation has happened since pinning), and anything else fails with
// ErrAlreadyBootstrapped rather than silently re-pinning.
func (c *Client) Bootstrap(ctx context.Context, pinned []byte) error {
	doc, err := metadata.Parse(pinned)
	if err != nil {
		return fmt.Errorf("failed to parse pinned root: %w", err)
	}
	if _, err := c.evaluator.VerifySelfSigned(ctx, doc); err != nil {
		return err
	}
	err = c.store.BootstrapRoot(doc)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrAlreadyBootstrapped) {
		return err
	}
	stored, err := c.store.Load(metadata.RoleRoot)
	if err != nil {
		return err
	}
	same, err := samePayload(stored, doc)
	if err != nil {
		return err
	}
	if same {
		return nil
	}
	storedHeader, err := stored.Header()
	if err != nil {
		return err
	}
	pinnedHeader, err := doc.Header()
	if err != nil {
		return err
	}
	if storedHeader.Version > pinnedHeader.Version {
		return nil
	}
	return store.ErrAlreadyBootstrapped
}

// Refresh updates all top-level roles, root first, then checks the
// repository's version constraints if a checker is configured.
func (c *Client) Refresh(ctx context.Context) error {
	for _, role := range metadata.TopLevelRoles {
		if err := c.RefreshRole(ctx, role); err != nil {
			return err
		}
	}
	if c.checker != nil {
		if err := c.checker.CheckVersion(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// RefreshRole fetches the latest metadata for one role and, if the trust
// evaluator accepts it, commits it as the new trusted document. A rejected
// candidate leaves the previously trusted document untouched. Refreshes of
// the same role are serialized; a re-fetch of the already-trusted document
// is a no-op success.
func (c *Client) RefreshRole(ctx context.Context, role string) error {
	lock := c.lockFor(role)
	lock.Lock()
	defer lock.Unlock()

	trustedRoot, err := c.store.Load(metadata.RoleRoot)
	if err != nil {
		return err
	}
	rootPayload, err := trustedRoot.Root()
	if err != nil {
		return &store.CorruptStoreError{Role: metadata.RoleRoot, Err: err}
	}
	// an undelegated role can never be accepted, so don't fetch for it
	if _, ok := rootPayload.Roles[role]; !ok {
		return &trust.UnauthorizedRoleError{Role: role}
	}

	var trusted *metadata.Document
	if role == metadata.RoleRoot {
		trusted = trustedRoot
	} else {
		trusted, err = c.store.Load(role)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	url := fmt.Sprintf("%s/%s", c.metadataURL, metadata.Filename(role))
	data, err := c.fetcher.DownloadFile(url, maxLengthFor(role), fetchTimeout)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	candidate, err := metadata.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse fetched %s metadata: %w", role, err)
	}

	if trusted != nil {
		same, err := samePayload(trusted, candidate)
		if err != nil {
			return err
		}
		if same {
			return nil
		}
	}

	if err := c.evaluator.Accept(ctx, role, trusted, candidate, rootPayload); err != nil {
		return err
	}
	return c.store.Commit(role, candidate)
}

// DownloadTarget fetches a target file listed in the trusted targets
// metadata, verifies its length and hashes, and only then writes it under
// destDir and returns its bytes. With an empty destDir nothing is written.
func (c *Client) DownloadTarget(ctx context.Context, target, destDir string) (string, []byte, error) {
	if target == "" || strings.Contains(target, "..") || strings.HasPrefix(target, "/") {
		return "", nil, fmt.Errorf("invalid target path %q", target)
	}
	targetsDoc, err := c.store.Load(metadata.RoleTargets)
	if err != nil {
		return "", nil, err
	}
	targets, err := targetsDoc.Targets()
	if err != nil {
		return "", nil, &store.CorruptStoreError{Role: metadata.RoleTargets, Err: err}
	}
	if !targets.Expires.After(c.evaluator.Now()) {
		return "", nil, &trust.ExpiredMetadataError{Role: metadata.RoleTargets, Expires: targets.Expires}
	}
	entry, ok := targets.Targets[target]
	if !ok {
		return "", nil, &UnknownTargetError{Target: target}
	}

	url := fmt.Sprintf("%s/%s", c.targetsURL, target)
	data, err := c.fetcher.DownloadFile(url, entry.Length, fetchTimeout)
	if err != nil {
		// a body longer than the trusted length disagrees with the
		// metadata, it is not a transport failure
		if isLengthExceeded(err) {
			return "", nil, &IntegrityMismatchError{
				Target: target,
				Field:  "length",
				Want:   fmt.Sprintf("%d", entry.Length),
				Got:    fmt.Sprintf("more than %d", entry.Length),
			}
		}
		return "", nil, &TransportError{URL: url, Err: err}
	}
	if err := verifyTarget(target, data, entry); err != nil {
		return "", nil, err
	}

	if destDir == "" {
		return "", data, nil
	}
	path := filepath.Join(destDir, filepath.FromSlash(target))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create target download directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("failed to write target file %q: %w", path, err)
	}
	return path, data, nil
}

// verifyTarget checks fetched bytes against the trusted entry. Every hash
// algorithm the client understands must agree, and at least one must be
// present.
func verifyTarget(target string, data []byte, entry metadata.TargetEntry) error {
	if int64(len(data)) != entry.Length {
		return &IntegrityMismatchError{
			Target: target,
			Field:  "length",
			Want:   fmt.Sprintf("%d", entry.Length),
			Got:    fmt.Sprintf("%d", len(data)),
		}
	}
	checked := 0
	for alg, want := range entry.Hashes {
		var got string
		switch alg {
		case "sha256":
			got = util.SHA256Hex(data)
		case "sha512":
			got = util.SHA512Hex(data)
		default:
			continue
		}
		if got != want {
			return &IntegrityMismatchError{Target: target, Field: alg, Want: want, Got: got}
		}
		checked++
	}
	if checked == 0 {
		return fmt.Errorf("target %q has no supported hash algorithm", target)
	}
	return nil
}

func (c *Client) lockFor(role string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.roleLocks[role]
	if !ok {
		lock = &sync.Mutex{}
		c.roleLocks[role] = lock
	}
	return lock
}

func maxLengthFor(role string) int64 {
	if role == metadata.RoleRoot {
		return rootMaxLength
	}
	return targetsMaxLength
}

// samePayload reports whether two documents carry byte-identical canonical
// payloads.
func samePayload(a, b *metadata.Document) (bool, error) {
	aBytes, err := a.PayloadBytes()
	if err != nil {
		return false, err
	}
	bBytes, err := b.PayloadBytes()
	if err != nil {
		return false, err
	}
	return util.SHA256Hex(aBytes) == util.SHA256Hex(bBytes), nil
}
