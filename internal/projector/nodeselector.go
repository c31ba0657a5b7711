/*
Copyright 2023.

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

package projector

import "strings"

// nodeSelector derives a pod node selector from constraint strings of the
// form "KEY==VALUE". Whitespace around the key and value is stripped,
// entries that don't contain "==" are dropped silently, and duplicate keys
// are deduplicated (last write wins), per spec.md §4.A. Grounded on
// OpenFaasFunctionSpec::to_node_selector in crds/impls.rs.
func nodeSelector(constraints []string) map[string]string {
	if len(constraints) == 0 {
		return nil
	}

	selector := make(map[string]string)
	for _, c := range constraints {
		parts := strings.SplitN(c, "==", 2)
		if len(parts) != 2 {
			continue
		}
		key := removeWhitespace(parts[0])
		value := removeWhitespace(parts[1])
		selector[key] = value
	}

	if len(selector) == 0 {
		return nil
	}
	return selector
}

// removeWhitespace strips spaces, tabs, '\n' and '\r' from s (other Unicode
// whitespace is kept), matching
// utils::remove_whitespace in the original source.
func removeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// uniqueStrings returns s with duplicates removed, preserving first-seen
// order. Grounded on Itertools::unique usage throughout crds/impls.rs.
func uniqueStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
