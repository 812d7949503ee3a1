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
	"encoding/hex"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"github.com/tuf-in-toto/layoutdist/metadata"
)

// CountValidSignatures counts distinct authorized keys with a valid signature
// over payload. Signatures from keys outside the verifier set are ignored,
// repeated signatures from one key count once, and anything malformed counts
// as invalid rather than erroring.
func CountValidSignatures(ctx context.Context, payload []byte, signatures []metadata.Signature, verifiers map[string]dsse.Verifier) int {
	seen := make(map[string]bool)
	for _, sig := range signatures {
		if seen[sig.KeyID] {
			continue
		}
		verifier, ok := verifiers[sig.KeyID]
		if !ok {
			continue
		}
		raw, err := hex.DecodeString(sig.Sig)
		if err != nil {
			continue
		}
		if err := verifier.Verify(ctx, payload, raw); err != nil {
			continue
		}
		seen[sig.KeyID] = true
	}
	return len(seen)
}
