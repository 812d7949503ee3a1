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

// Package trust decides whether candidate metadata documents may supersede
// the currently trusted ones. A rejection never mutates anything; callers
// keep their previous trusted state.
package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"
	"github.com/tuf-in-toto/layoutdist/metadata"
	"github.com/tuf-in-toto/layoutdist/signerverifier"
)

// Evaluator enforces the acceptance rules for new role metadata: freshness,
// strict version monotonicity, and threshold signing by the keys the trusted
// root delegates to the role.
type Evaluator struct {
	// Now is the evaluation clock. Overridable in tests.
	Now func() time.Time
}

func NewEvaluator() *Evaluator {
	return &Evaluator{Now: time.Now}
}

// Accept evaluates candidate for role against the trusted predecessor (nil
// for a role with no trusted document yet) using the key and threshold
// tables of root. A nil return means the candidate may be committed.
func (e *Evaluator) Accept(ctx context.Context, role string, trusted, candidate *metadata.Document, root *metadata.RootPayload) error {
	header, err := candidate.Header()
	if err != nil {
		return err
	}
	if header.Type != role {
		return &UnauthorizedRoleError{Role: role, Type: header.Type}
	}
	if !header.Expires.After(e.Now()) {
		return &ExpiredMetadataError{Role: role, Expires: header.Expires}
	}
	if trusted != nil {
		trustedHeader, err := trusted.Header()
		if err != nil {
			return fmt.Errorf("failed to parse trusted %s metadata: %w", role, err)
		}
		if header.Version <= trustedHeader.Version {
			return &RollbackError{Role: role, Trusted: trustedHeader.Version, Candidate: header.Version}
		}
	}
	roleInfo, ok := root.Roles[role]
	if !ok {
		return &UnauthorizedRoleError{Role: role}
	}
	if roleInfo.Threshold < 1 {
		return fmt.Errorf("role %q has invalid signature threshold %d", role, roleInfo.Threshold)
	}
	payload, err := candidate.PayloadBytes()
	if err != nil {
		return err
	}
	verifiers := e.verifiersFor(root, roleInfo)
	valid := signerverifier.CountValidSignatures(ctx, payload, candidate.Signatures, verifiers)
	if valid < roleInfo.Threshold {
		return &SignatureThresholdError{Role: role, Valid: valid, Threshold: roleInfo.Threshold}
	}
	return nil
}

// VerifySelfSigned checks that a root document meets its own delegation's
// signature threshold. Used for the pinned initial root, which has no trusted
// predecessor and is exempt from expiry and version rules at bootstrap.
func (e *Evaluator) VerifySelfSigned(ctx context.Context, doc *metadata.Document) (*metadata.RootPayload, error) {
	root, err := doc.Root()
	if err != nil {
		return nil, err
	}
	roleInfo, ok := root.Roles[metadata.RoleRoot]
	if !ok {
		return nil, &UnauthorizedRoleError{Role: metadata.RoleRoot}
	}
	if roleInfo.Threshold < 1 {
		return nil, fmt.Errorf("role %q has invalid signature threshold %d", metadata.RoleRoot, roleInfo.Threshold)
	}
	payload, err := doc.PayloadBytes()
	if err != nil {
		return nil, err
	}
	valid := signerverifier.CountValidSignatures(ctx, payload, doc.Signatures, e.verifiersFor(root, roleInfo))
	if valid < roleInfo.Threshold {
		return nil, &SignatureThresholdError{Role: metadata.RoleRoot, Valid: valid, Threshold: roleInfo.Threshold}
	}
	return root, nil
}

// verifiersFor builds verifiers for the keys delegated to a role. Keys that
// are missing from the key table or fail to parse simply cannot contribute a
// valid signature.
func (e *Evaluator) verifiersFor(root *metadata.RootPayload, roleInfo metadata.RoleInfo) map[string]dsse.Verifier {
	verifiers := make(map[string]dsse.Verifier, len(roleInfo.KeyIDs))
	for _, keyID := range roleInfo.KeyIDs {
		key, ok := root.Keys[keyID]
		if !ok {
			continue
		}
		verifier, err := signerverifier.NewVerifier(&key)
		if err != nil {
			continue
		}
		verifiers[keyID] = verifier
	}
	return verifiers
}
