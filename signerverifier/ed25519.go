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

package signerverifier

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"
)

type ed25519Verifier struct {
	publicKey ed25519.PublicKey
	keyID     string
}

// ensure ed25519Verifier implements dsse.Verifier.
var _ dsse.Verifier = (*ed25519Verifier)(nil)

func NewED25519Verifier(publicKey crypto.PublicKey) (dsse.Verifier, error) {
	edPublicKey, ok := (publicKey).(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not an ed25519 public key")
	}
	return &ed25519Verifier{
		publicKey: edPublicKey,
	}, nil
}

func (v *ed25519Verifier) Verify(_ context.Context, data, signature []byte) error {
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("payload signature has wrong size")
	}
	if !ed25519.Verify(v.publicKey, data, signature) {
		return fmt.Errorf("payload signature is not valid")
	}
	return nil
}

func (v *ed25519Verifier) Public() crypto.PublicKey {
	return v.publicKey
}

func (v *ed25519Verifier) KeyID() (string, error) {
	if v.keyID != "" {
		return v.keyID, nil
	}
	keyID, err := KeyID(v.publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to get key ID: %w", err)
	}
	v.keyID = keyID
	return v.keyID, nil
}

// must implement dsse.SignerVerifier interface.
var _ dsse.SignerVerifier = (*ed25519SignerVerifier)(nil)

type ed25519SignerVerifier struct {
	privateKey ed25519.PrivateKey
	dsse.Verifier
}

func (s *ed25519SignerVerifier) Sign(_ context.Context, data []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, data), nil
}

func (s *ed25519SignerVerifier) Private() crypto.PrivateKey {
	return s.privateKey
}

// EncodePrivateKey encodes a locally held signing key as PKCS#8 PEM so the
// repository tooling can persist it for later re-signing.
func EncodePrivateKey(sv dsse.SignerVerifier) ([]byte, error) {
	holder, ok := sv.(interface{ Private() crypto.PrivateKey })
	if !ok {
		return nil, fmt.Errorf("signer does not expose a private key")
	}
	return ConvertPrivateKeyToPEM(holder.Private())
}

// GenKeyPair generates a fresh ed25519 signing key pair. ed25519 is the
// default scheme for repository role keys.
func GenKeyPair() (dsse.SignerVerifier, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	verifier, err := NewED25519Verifier(pub)
	if err != nil {
		return nil, err
	}
	return &ed25519SignerVerifier{
		privateKey: priv,
		Verifier:   verifier,
	}, nil
}

// LoadKeyPair loads a PKCS#8 PEM encoded ed25519 private key.
func LoadKeyPair(privkeyBytes []byte) (dsse.SignerVerifier, error) {
	key, err := ParsePrivateKey(privkeyBytes)
	if err != nil {
		return nil, err
	}
	edPrivateKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not an ed25519 key")
	}
	verifier, err := NewED25519Verifier(edPrivateKey.Public())
	if err != nil {
		return nil, err
	}
	return &ed25519SignerVerifier{
		privateKey: edPrivateKey,
		Verifier:   verifier,
	}, nil
}
