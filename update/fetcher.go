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

import (
	"errors"
	"fmt"
	"time"

	tufmd "github.com/theupdateframework/go-tuf/v2/metadata"
	"github.com/theupdateframework/go-tuf/v2/metadata/fetcher"
)

// Fetcher is the transport the client fetches metadata and target bytes
// with. Downloads are bounded in size and time; retries, if any, are the
// transport's concern. The contract matches go-tuf's fetcher so its HTTP
// implementation can be used directly.
type Fetcher interface {
	DownloadFile(urlPath string, maxLength int64, timeout time.Duration) ([]byte, error)
}

// NewHTTPFetcher returns the default HTTP transport.
func NewHTTPFetcher() Fetcher {
	return &fetcher.DefaultFetcher{}
}

// TransportError wraps a transport failure. It never affects trust state;
// the operation that needed the bytes simply fails.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// isLengthExceeded reports whether a download failed because the body was
// longer than the requested maximum.
func isLengthExceeded(err error) bool {
	var lengthErr *tufmd.ErrDownloadLengthMismatch
	return errors.As(err, &lengthErr)
}
