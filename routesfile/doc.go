/*
Package routesfile implements data clients reading the route definitions
from a YAML or JSON file.

The file contains a single document with the list of the routes:

	routes:
	- id: search
	  path: /search
	  method: GET
	  parameters:
	  - name: q
	    source: query
	    required: true
	  backend:
	    type: echo
	- id: health
	  path: /healthz
	  backend:
	    type: static
	    body: ok

Open loads the file once, Watch polls the file for changes, and
RemoteWatch downloads the file from an http or https URL. (See the
DataClient interface in the fastlane/routing package.)
*/
package routesfile
