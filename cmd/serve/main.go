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

// serve exposes a generated repository directory over HTTP as static files.
// Clients fetch metadata from /metadata and target files from /targets.
package main

import (
	"flag"
	"net/http"

	"github.com/golang/glog"
)

var (
	dir    = flag.String("dir", "repository", "Repository directory to serve")
	listen = flag.String("listen", ":8000", "Address to listen on")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	glog.Infof("Serving %s on %s", *dir, *listen)
	if err := http.ListenAndServe(*listen, http.FileServer(http.Dir(*dir))); err != nil {
		glog.Exitf("Server failed: %v", err)
	}
}
