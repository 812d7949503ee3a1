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

package update

import "fmt"

// UnknownTargetError reports a download request for a path the trusted
// targets metadata does not list.
type UnknownTargetError struct {
	Target string
}

func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("target %q not found in trusted targets metadata", e.Target)
}

// IntegrityMismatchError reports that fetched target bytes disagree with the
// trusted metadata entry. No bytes are released to the caller.
type IntegrityMismatchError struct {
	Target string
	Field  string // "length" or a hash algorithm name
	Want   string
	Got    string
}

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("target %q failed integrity check: %s mismatch (want %s, got %s)", e.Target, e.Field, e.Want, e.Got)
}
