// Package config loads, validates and watches the gateway configuration.
//
// Configuration is a single YAML document. ${VAR} and ${VAR:-default}
// references are substituted from the environment before parsing, and
// "$$" escapes a literal dollar sign.
//
//	apiVersion: apimanager.io/v1
//	kind: Gateway
//	metadata:
//	  name: bookstore-gateway
//	spec:
//	  service:
//	    name: bookstore.endpoints.example.cloud.goog
//	    producerProjectId: example
//	    methods:
//	      - name: ListShelves
//	        httpMethod: GET
//	        path: /v1/shelves
//	      - name: GetBook
//	        httpMethod: GET
//	        path: /v1/shelves/{shelf}/books/{book}
//	        apiKey:
//	          headers: [x-api-key]
//
// An apiKey section with an empty list still counts as configured: the
// default "key" and "api_key" query parameters are then not consulted.
package config
