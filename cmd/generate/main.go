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

// generate creates a signed repository directory: role keys, root and
// targets metadata, and the published target files. Run once, offline,
// before serving the repository.
package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/golang/glog"
	"github.com/tuf-in-toto/layoutdist/repo"
)

var (
	out        = flag.String("out", "repository", "Directory to write the generated repository to")
	configFile = flag.String("config", "", "Path to a repository config file (optional; a default demo repository is generated without one)")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	var cfg *repo.Config
	if *configFile != "" {
		var err error
		cfg, err = repo.LoadConfig(*configFile)
		if err != nil {
			glog.Exitf("Failed to load config: %v", err)
		}
	}

	r, err := repo.Init(*out, cfg)
	if err != nil {
		glog.Exitf("Failed to initialize repository: %v", err)
	}
	if err := r.Publish(context.Background()); err != nil {
		glog.Exitf("Failed to publish metadata: %v", err)
	}

	glog.Infof("Signed metadata written to %s/%s", *out, repo.MetadataDirName)
	fmt.Printf("Repository written to %s\n", r.Dir())
}
