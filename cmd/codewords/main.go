// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command codewords renders, edits and serves block-structured documents.
//
// Usage:
//
//	codewords render doc.json
//	codewords suggest doc.json number --targets
//	codewords edit doc.json --snippet number --target <locator from suggest>
//	codewords apply doc.json actions.json
//	codewords watch doc.yaml
//	codewords history doc.json --config codewords.yaml
//	codewords serve --document doc.json
//
// Example requests against serve:
//
//	# Current state
//	curl http://localhost:8090/v1/editor/state | jq
//
//	# Palette for a query
//	curl 'http://localhost:8090/v1/editor/snippets?q=let' | jq
//
//	# Drop a snippet on a target
//	curl -X POST http://localhost:8090/v1/editor/drop \
//	  -H "Content-Type: application/json" \
//	  -d '{"snippet_id": "number", "target_id": "cwdt3"}'
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
