package signerverifier

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuf-in-toto/layoutdist/internal/util"
	"github.com/tuf-in-toto/layoutdist/metadata"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	sv, err := GenKeyPair()
	require.NoError(t, err)

	payload := []byte("some signed payload")
	sig, err := sv.Sign(ctx, payload)
	require.NoError(t, err)
	require.NoError(t, sv.Verify(ctx, payload, sig))

	assert.Error(t, sv.Verify(ctx, []byte("tampered payload"), sig))
	assert.Error(t, sv.Verify(ctx, payload, []byte("short")))
}

func TestKeyIDStable(t *testing.T) {
	sv, err := GenKeyPair()
	require.NoError(t, err)

	keyID, err := sv.KeyID()
	require.NoError(t, err)

	// a key round-tripped through PEM keeps its ID
	keyPEM, err := EncodePrivateKey(sv)
	require.NoError(t, err)
	loaded, err := LoadKeyPair(keyPEM)
	require.NoError(t, err)
	loadedID, err := loaded.KeyID()
	require.NoError(t, err)
	assert.Equal(t, keyID, loadedID)
}

func TestNewVerifierFromMetadataKey(t *testing.T) {
	ctx := context.Background()
	sv, err := GenKeyPair()
	require.NoError(t, err)
	keyID, key, err := NewMetadataKey(sv)
	require.NoError(t, err)
	assert.Equal(t, KeyTypeED25519, key.KeyType)

	verifier, err := NewVerifier(key)
	require.NoError(t, err)
	verifierID, err := verifier.KeyID()
	require.NoError(t, err)
	assert.Equal(t, keyID, verifierID)

	payload := []byte("payload")
	sig, err := sv.Sign(ctx, payload)
	require.NoError(t, err)
	require.NoError(t, verifier.Verify(ctx, payload, sig))
}

func TestECDSAVerify(t *testing.T) {
	ctx := context.Background()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, key, err := NewMetadataKey(mustECDSAVerifier(t, &priv.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, KeyTypeECDSA, key.KeyType)
	assert.Equal(t, SchemeECDSASHA256, key.Scheme)

	verifier, err := NewVerifier(key)
	require.NoError(t, err)

	payload := []byte("ecdsa signed payload")
	sig, err := ecdsa.SignASN1(rand.Reader, priv, util.SHA256(payload))
	require.NoError(t, err)
	require.NoError(t, verifier.Verify(ctx, payload, sig))
	assert.Error(t, verifier.Verify(ctx, []byte("tampered payload"), sig))
}

func mustECDSAVerifier(t *testing.T, pub *ecdsa.PublicKey) dsse.Verifier {
	t.Helper()
	verifier, err := NewECDSAVerifier(pub)
	require.NoError(t, err)
	return verifier
}

func TestNewVerifierBadKey(t *testing.T) {
	_, err := NewVerifier(&metadata.Key{Public: "not pem"})
	require.Error(t, err)
}

func signedBy(t *testing.T, payload []byte, sv dsse.SignerVerifier) metadata.Signature {
	t.Helper()
	sig, err := sv.Sign(context.Background(), payload)
	require.NoError(t, err)
	keyID, err := sv.KeyID()
	require.NoError(t, err)
	return metadata.Signature{KeyID: keyID, Sig: hex.EncodeToString(sig)}
}

func TestCountValidSignatures(t *testing.T) {
	ctx := context.Background()
	payload := []byte("payload under signature")

	authorized, err := GenKeyPair()
	require.NoError(t, err)
	authorizedID, err := authorized.KeyID()
	require.NoError(t, err)
	stranger, err := GenKeyPair()
	require.NoError(t, err)

	verifiers := map[string]dsse.Verifier{authorizedID: authorized}

	good := signedBy(t, payload, authorized)
	strangerSig := signedBy(t, payload, stranger)

	testCases := []struct {
		name       string
		signatures []metadata.Signature
		want       int
	}{
		{"no signatures", nil, 0},
		{"one valid", []metadata.Signature{good}, 1},
		{"duplicate key counts once", []metadata.Signature{good, good}, 1},
		{"unauthorized ignored", []metadata.Signature{strangerSig}, 0},
		{"unauthorized does not mask valid", []metadata.Signature{strangerSig, good, strangerSig}, 1},
		{"garbage hex ignored", []metadata.Signature{{KeyID: authorizedID, Sig: "zzzz"}}, 0},
		{"wrong payload signature invalid", []metadata.Signature{{KeyID: authorizedID, Sig: strangerSig.Sig}}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountValidSignatures(ctx, payload, tc.signatures, verifiers))
		})
	}
}
