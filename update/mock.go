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
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	tufmd "github.com/theupdateframework/go-tuf/v2/metadata"
)

// MockFetcher serves downloads from a local repository directory, resolving
// a URL's path relative to SrcPath. Overrides replace the served bytes for
// specific URL paths; Err forces every download to fail.
type MockFetcher struct {
	SrcPath   string
	Overrides map[string][]byte
	Err       error
}

func NewMockFetcher(srcPath string) *MockFetcher {
	if srcPath == "" {
		panic("srcPath must be set")
	}
	return &MockFetcher{
		SrcPath:   srcPath,
		Overrides: make(map[string][]byte),
	}
}

func (f *MockFetcher) DownloadFile(urlPath string, maxLength int64, _ time.Duration) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	u, err := url.Parse(urlPath)
	if err != nil {
		return nil, err
	}
	data, ok := f.Overrides[u.Path]
	if !ok {
		data, err = os.ReadFile(filepath.Join(f.SrcPath, filepath.FromSlash(u.Path)))
		if err != nil {
			return nil, err
		}
	}
	if int64(len(data)) > maxLength {
		return nil, &tufmd.ErrDownloadLengthMismatch{
			Msg: fmt.Sprintf("%s exceeds maximum download length %d", urlPath, maxLength),
		}
	}
	return data, nil
}

// MockVersionChecker reports a fixed result.
type MockVersionChecker struct {
	Err error
}

func NewMockVersionChecker() *MockVersionChecker {
	return &MockVersionChecker{}
}

func (vc *MockVersionChecker) CheckVersion(_ context.Context, _ Downloader) error {
	return vc.Err
}
