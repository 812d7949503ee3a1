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

// Package metadata defines the signed role metadata documents exchanged
// between the repository and the update client: a root document carrying
// the key and threshold delegation tables, and a targets document carrying
// integrity information for the published target files.
package metadata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/secure-systems-lab/go-securesystemslib/cjson"
)

const (
	RoleRoot    = "root"
	RoleTargets = "targets"
)

// TopLevelRoles lists the roles this client understands, in refresh order.
var TopLevelRoles = []string{RoleRoot, RoleTargets}

// Key is a public key as listed in the root document's key table. The key ID
// is the map key in RootPayload.Keys, not a field of the key itself.
type Key struct {
	KeyType string `json:"keytype"`
	Scheme  string `json:"scheme"`
	Public  string `json:"public"`
}

// RoleInfo names the keys authorized to sign a role and how many of them
// must have signed for a document of that role to be trusted.
type RoleInfo struct {
	KeyIDs    []string `json:"keyids"`
	Threshold int      `json:"threshold"`
}

// Signature is a detached signature over the canonical form of a document's
// signed portion. Sig is lowercase hex.
type Signature struct {
	KeyID string `json:"keyid"`
	Sig   string `json:"sig"`
}

// Common holds the header fields shared by all signed payloads.
type Common struct {
	Type    string    `json:"_type"`
	Version int64     `json:"version"`
	Expires time.Time `json:"expires"`
}

// RootPayload is the signed portion of a root document. The delegation
// table is flat: every role this repository serves appears in Roles, keyed
// by role name, including root itself.
type RootPayload struct {
	Common
	Keys  map[string]Key      `json:"keys"`
	Roles map[string]RoleInfo `json:"roles"`
}

// TargetEntry records the expected content of one published target file.
// Hashes maps a hash algorithm name (e.g. "sha256") to a lowercase hex digest.
type TargetEntry struct {
	Hashes map[string]string `json:"hashes"`
	Length int64             `json:"length"`
}

// TargetsPayload is the signed portion of a targets document, keyed by
// target path relative to the repository's targets URL.
type TargetsPayload struct {
	Common
	Targets map[string]TargetEntry `json:"targets"`
}

// Document is the envelope for any role's metadata: an opaque signed payload
// plus the signatures over its canonical form. The payload is kept as raw
// bytes so that parsing and re-serializing a document cannot alter the bytes
// that signatures are checked against.
type Document struct {
	Signed     json.RawMessage `json:"signed"`
	Signatures []Signature     `json:"signatures"`
}

// Parse decodes a metadata document from its JSON encoding.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata document: %w", err)
	}
	if len(doc.Signed) == 0 {
		return nil, fmt.Errorf("metadata document has no signed portion")
	}
	return doc, nil
}

// Bytes serializes the document. The output is indented to match the
// repository tooling's on-disk format; the signed portion is emitted verbatim.
func (d *Document) Bytes() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata document: %w", err)
	}
	return out, nil
}

// PayloadBytes returns the canonical JSON form of the signed portion.
// These are the bytes signatures are generated over and verified against.
func (d *Document) PayloadBytes() ([]byte, error) {
	var decoded any
	if err := json.Unmarshal(d.Signed, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode signed portion: %w", err)
	}
	canonical, err := cjson.EncodeCanonical(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize signed portion: %w", err)
	}
	return canonical, nil
}

// Header parses just the common fields of the signed portion.
func (d *Document) Header() (*Common, error) {
	header := &Common{}
	if err := json.Unmarshal(d.Signed, header); err != nil {
		return nil, fmt.Errorf("failed to parse metadata header: %w", err)
	}
	return header, nil
}

// Root parses the signed portion as a root payload.
func (d *Document) Root() (*RootPayload, error) {
	root := &RootPayload{}
	if err := json.Unmarshal(d.Signed, root); err != nil {
		return nil, fmt.Errorf("failed to parse root payload: %w", err)
	}
	if root.Type != RoleRoot {
		return nil, fmt.Errorf("payload type %q is not %q", root.Type, RoleRoot)
	}
	return root, nil
}

// Targets parses the signed portion as a targets payload.
func (d *Document) Targets() (*TargetsPayload, error) {
	targets := &TargetsPayload{}
	if err := json.Unmarshal(d.Signed, targets); err != nil {
		return nil, fmt.Errorf("failed to parse targets payload: %w", err)
	}
	if targets.Type != RoleTargets {
		return nil, fmt.Errorf("payload type %q is not %q", targets.Type, RoleTargets)
	}
	return targets, nil
}

// NewDocument wraps a payload struct into an unsigned document.
func NewDocument(payload any) (*Document, error) {
	signed, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Document{Signed: signed}, nil
}

// Filename is the latest-version metadata filename for a role.
func Filename(role string) string {
	return fmt.Sprintf("%s.json", role)
}

// VersionedFilename is the consistent-snapshot metadata filename for a role.
func VersionedFilename(role string, version int64) string {
	return fmt.Sprintf("%d.%s.json", version, role)
}
