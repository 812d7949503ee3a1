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

package repo

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/tuf-in-toto/layoutdist/metadata"
	"github.com/tuf-in-toto/layoutdist/signerverifier"
)

// emitLayout generates the functionary key pair and publishes two targets:
// a minimal in-toto layout signed by the functionary, and the functionary's
// public key. These are repository *content* for clients to fetch; nothing
// here evaluates layout semantics.
func (r *Repository) emitLayout(cfg *LayoutConfig) error {
	sv, err := signerverifier.GenKeyPair()
	if err != nil {
		return fmt.Errorf("failed to generate functionary key: %w", err)
	}
	keyID, err := sv.KeyID()
	if err != nil {
		return err
	}
	pub, ok := sv.Public().(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("functionary key is not ed25519")
	}

	expires := r.Now().UTC().Truncate(time.Second).AddDate(0, 0, r.cfg.ExpiryDays[metadata.RoleRoot])
	layout := in_toto.Layout{
		Type:    "layout",
		Expires: expires.Format("2006-01-02T15:04:05Z"),
		Readme:  fmt.Sprintf("Demo supply chain layout, signed by %s", cfg.Functionary),
		Keys: map[string]in_toto.Key{
			keyID: {
				KeyID:               keyID,
				KeyIDHashAlgorithms: []string{"sha256"},
				KeyType:             "ed25519",
				Scheme:              "ed25519",
				KeyVal: in_toto.KeyVal{
					Public: hex.EncodeToString(pub),
				},
			},
		},
		Steps: []in_toto.Step{
			{
				Type:            "step",
				PubKeys:         []string{keyID},
				ExpectedCommand: []string{},
				Threshold:       1,
				SupplyChainItem: in_toto.SupplyChainItem{
					Name:              "write-code",
					ExpectedMaterials: [][]string{},
					ExpectedProducts:  [][]string{},
				},
			},
		},
		Inspect: []in_toto.Inspection{},
	}

	mb := in_toto.Metablock{Signed: layout}
	signable, err := mb.GetSignableRepresentation()
	if err != nil {
		return fmt.Errorf("failed to canonicalize layout: %w", err)
	}
	sig, err := sv.Sign(context.Background(), signable)
	if err != nil {
		return fmt.Errorf("failed to sign layout: %w", err)
	}
	mb.Signatures = []in_toto.Signature{
		{KeyID: keyID, Sig: hex.EncodeToString(sig)},
	}

	layoutBytes, err := json.MarshalIndent(mb, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}
	if err := r.AddTargetData(cfg.Path, layoutBytes); err != nil {
		return err
	}

	pubPEM, err := signerverifier.ConvertToPEM(sv.Public())
	if err != nil {
		return err
	}
	if err := r.AddTargetData(fmt.Sprintf("%s.pub", cfg.Functionary), pubPEM); err != nil {
		return err
	}
	return r.writePrivateKey(fmt.Sprintf("%s.pem", cfg.Functionary), sv)
}
