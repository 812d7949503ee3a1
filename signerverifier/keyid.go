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
	"fmt"

	"github.com/tuf-in-toto/layoutdist/internal/util"
)

// KeyID derives the identifier of a public key: the hex sha256 digest of its
// PKIX DER encoding. Stable across PEM re-encodings of the same key.
func KeyID(pubKey crypto.PublicKey) (string, error) {
	pub, err := x509.MarshalPKIXPublicKey(pubKey)
	if err != nil {
		return "", fmt.Errorf("error marshaling public key: %w", err)
	}
	return util.SHA256Hex(pub), nil
}
