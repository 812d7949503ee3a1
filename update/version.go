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
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tuf-in-toto/layoutdist/version"
)

// VersionConstraintsTarget is the well-known target a repository may publish
// to declare which client versions it still serves.
const VersionConstraintsTarget = "version-constraints"

// Downloader is the part of the client a version checker needs.
type Downloader interface {
	DownloadTarget(ctx context.Context, target, destDir string) (string, []byte, error)
}

type VersionChecker interface {
	// CheckVersion checks if the current version of this module meets the
	// constraints published in the repository.
	CheckVersion(ctx context.Context, client Downloader) error
}

type InvalidVersionError struct {
	ClientVersion     string
	VersionConstraint string
	Errors            []error
}

func (e *InvalidVersionError) Error() string {
	var errsStr strings.Builder
	for i, err := range e.Errors {
		if i > 0 {
			errsStr.WriteString("; ")
		}
		errsStr.WriteString(err.Error())
	}
	return fmt.Sprintf("%s version %s does not satisfy constraints %s: %s", version.ThisModulePath, e.ClientVersion, e.VersionConstraint, errsStr.String())
}

func NewDefaultVersionChecker() *DefaultVersionChecker {
	return &DefaultVersionChecker{
		VersionFetcher: version.NewGoVersionFetcher(),
	}
}

type DefaultVersionChecker struct {
	VersionFetcher version.Fetcher
}

func (vc *DefaultVersionChecker) CheckVersion(ctx context.Context, client Downloader) error {
	clientVersion, err := vc.VersionFetcher.Get()
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	if clientVersion == nil {
		return nil
	}
	_, data, err := client.DownloadTarget(ctx, VersionConstraintsTarget, "")
	if err != nil {
		// a repository without published constraints accepts any client
		var unknown *UnknownTargetError
		if errors.As(err, &unknown) {
			return nil
		}
		return fmt.Errorf("failed to download version-constraints: %w", err)
	}
	versionConstraints, err := semver.NewConstraint(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("failed to parse version constraints: %w", err)
	}

	ok, errs := versionConstraints.Validate(clientVersion)
	if !ok {
		return &InvalidVersionError{
			ClientVersion:     clientVersion.String(),
			VersionConstraint: versionConstraints.String(),
			Errors:            errs,
		}
	}

	return nil
}
