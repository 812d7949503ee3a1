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

package trust

import (
	"fmt"
	"time"
)

// ExpiredMetadataError rejects a candidate whose expiry is at or before the
// evaluation time. The boundary is inclusive so clock skew errs toward
// treating metadata as stale.
type ExpiredMetadataError struct {
	Role    string
	Expires time.Time
}

func (e *ExpiredMetadataError) Error() string {
	return fmt.Sprintf("%s metadata expired at %s", e.Role, e.Expires.UTC().Format(time.RFC3339))
}

// RollbackError rejects a candidate whose version is not strictly greater
// than the trusted predecessor's.
type RollbackError struct {
	Role      string
	Trusted   int64
	Candidate int64
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("refusing to roll back %s from version %d to version %d", e.Role, e.Trusted, e.Candidate)
}

// SignatureThresholdError rejects a candidate signed by fewer authorized keys
// than the role's threshold. Both counts are kept so diagnostics can report
// them together, e.g. "root was signed by 0/1 keys".
type SignatureThresholdError struct {
	Role      string
	Valid     int
	Threshold int
}

func (e *SignatureThresholdError) Error() string {
	return fmt.Sprintf("%s was signed by %d/%d keys", e.Role, e.Valid, e.Threshold)
}

// UnauthorizedRoleError rejects a candidate for a role the trusted root does
// not delegate, or whose payload type does not match the role it was fetched
// for.
type UnauthorizedRoleError struct {
	Role string
	Type string
}

func (e *UnauthorizedRoleError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("metadata type %q does not match role %q", e.Type, e.Role)
	}
	return fmt.Sprintf("role %q is not delegated by the trusted root", e.Role)
}
