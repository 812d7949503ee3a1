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

// download fetches one target file from a repository, verifying it against
// trusted metadata before writing it out. The pinned initial root is
// supplied out-of-band via --root.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/tuf-in-toto/layoutdist/update"
)

var (
	rootFile    = flag.String("root", "", "Path to the pinned initial root metadata file")
	metadataURL = flag.String("metadata_url", "", "Base URL for role metadata, e.g. http://localhost:8000/metadata")
	targetsURL  = flag.String("targets_url", "", "Base URL for target files, e.g. http://localhost:8000/targets")
	storageDir  = flag.String("storage", "trusted", "Directory for the local trusted metadata store")
	outputDir   = flag.String("output", "downloads", "Directory to write verified target files to")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := validateFlags(); err != nil {
		glog.Exitf("Invalid flag(s):\n%s", err)
	}
	target := flag.Arg(0)

	initialRoot, err := os.ReadFile(*rootFile)
	if err != nil {
		glog.Exitf("Failed to read pinned root file: %v", err)
	}

	ctx := context.Background()
	client, err := update.NewClient(ctx, &update.ClientOptions{
		InitialRoot:     initialRoot,
		LocalStorageDir: *storageDir,
		MetadataSource:  *metadataURL,
		TargetsSource:   *targetsURL,
		VersionChecker:  update.NewDefaultVersionChecker(),
	})
	if err != nil {
		fail(target, err)
	}

	glog.Info("Refreshing trusted metadata...")
	if err := client.Refresh(ctx); err != nil {
		fail(target, err)
	}

	path, _, err := client.DownloadTarget(ctx, target, *outputDir)
	if err != nil {
		fail(target, err)
	}
	fmt.Printf("Downloaded target %s to %s\n", target, path)
}

// fail reports the exact reject reason so diagnostics like
// "root was signed by 0/1 keys" reach the operator unchanged.
func fail(target string, err error) {
	fmt.Fprintf(os.Stderr, "Failed to download target %s: %v\n", target, err)
	os.Exit(1)
}

func validateFlags() error {
	errs := make([]string, 0)
	checkEmpty := func(n, s string) {
		if s == "" {
			errs = append(errs, fmt.Sprintf("--%s can't be empty", n))
		}
	}
	checkEmpty("root", *rootFile)
	checkEmpty("metadata_url", *metadataURL)
	checkEmpty("targets_url", *targetsURL)
	if flag.NArg() != 1 {
		errs = append(errs, "exactly one target path argument is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "\n"))
	}
	return nil
}
