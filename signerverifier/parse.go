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
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const (
	pemTypePublic  = "PUBLIC KEY"
	pemTypePrivate = "PRIVATE KEY"
)

func ParsePublicKey(pubkeyBytes []byte) (crypto.PublicKey, error) {
	p, _ := pem.Decode(pubkeyBytes)
	if p == nil {
		return nil, fmt.Errorf("pubkey file does not contain any PEM data")
	}
	if p.Type != pemTypePublic {
		return nil, fmt.Errorf("pubkey file does not contain a public key")
	}
	return x509.ParsePKIXPublicKey(p.Bytes)
}

func ParsePrivateKey(privkeyBytes []byte) (crypto.PrivateKey, error) {
	p, _ := pem.Decode(privkeyBytes)
	if p == nil {
		return nil, fmt.Errorf("private key file does not contain any PEM data")
	}
	if p.Type != pemTypePrivate {
		return nil, fmt.Errorf("private key file does not contain a private key")
	}
	return x509.ParsePKCS8PrivateKey(p.Bytes)
}

func ConvertToPEM(pubKey crypto.PublicKey) ([]byte, error) {
	pubKeyBytes, err := x509.MarshalPKIXPublicKey(pubKey)
	if err != nil {
		return nil, fmt.Errorf("error failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: pubKeyBytes}), nil
}

func ConvertPrivateKeyToPEM(privKey crypto.PrivateKey) ([]byte, error) {
	privKeyBytes, err := x509.MarshalPKCS8PrivateKey(privKey)
	if err != nil {
		return nil, fmt.Errorf("error failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: privKeyBytes}), nil
}
