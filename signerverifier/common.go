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

// Package signerverifier verifies (and, for the repository tooling, creates)
// detached signatures over canonical metadata payload bytes. Verification
// fails closed: malformed keys, unknown schemes and bad signatures all
// surface as errors, never as success.
package signerverifier

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"fmt"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"github.com/tuf-in-toto/layoutdist/metadata"
)

const (
	KeyTypeED25519 = "ed25519"
	KeyTypeECDSA   = "ecdsa"

	SchemeED25519     = "ed25519"
	SchemeECDSASHA256 = "ecdsa-sha2-nistp256"
)

// NewVerifier builds a verifier for a public key from a root document's key
// table, dispatching on the parsed key material.
func NewVerifier(key *metadata.Key) (dsse.Verifier, error) {
	publicKey, err := ParsePublicKey([]byte(key.Public))
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	switch publicKey.(type) {
	case ed25519.PublicKey:
		return NewED25519Verifier(publicKey)
	case *ecdsa.PublicKey:
		return NewECDSAVerifier(publicKey)
	default:
		return nil, fmt.Errorf("unsupported public key type %T", publicKey)
	}
}

// NewMetadataKey describes a public key as a root key-table entry, returning
// the key ID it is listed under.
func NewMetadataKey(verifier dsse.Verifier) (string, *metadata.Key, error) {
	keyID, err := verifier.KeyID()
	if err != nil {
		return "", nil, err
	}
	pubPEM, err := ConvertToPEM(verifier.Public())
	if err != nil {
		return "", nil, err
	}
	keyType := KeyTypeED25519
	scheme := SchemeED25519
	if _, ok := verifier.Public().(*ecdsa.PublicKey); ok {
		keyType = KeyTypeECDSA
		scheme = SchemeECDSASHA256
	}
	return keyID, &metadata.Key{
		KeyType: keyType,
		Scheme:  scheme,
		Public:  string(pubPEM),
	}, nil
}
