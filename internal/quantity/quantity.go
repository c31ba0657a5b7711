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

// Package quantity parses the CPU and memory quantity strings carried in a
// FunctionResources block, distinguishing which field failed to parse so
// the caller can pick the matching status reason (CPUQuantity vs
// MemoryQuantity). This stands in for the original Rust's kube_quantity
// crate wrapping, grounded on crds/impls.rs's FunctionResourcesQuantity.
package quantity

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Kind identifies which spec field a quantity came from.
type Kind string

const (
	CPU    Kind = "cpu"
	Memory Kind = "memory"
)

// Error wraps a resource.ParseQuantity failure with the field it came from,
// so callers can map it to the CPUQuantity/MemoryQuantity status reason
// without string-matching the underlying error. Mirrors IntoQuantityError
// in crds/defs.rs, which carries the same Memory/CPU distinction.
type Error struct {
	Kind  Kind
	Value string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s quantity %q: %s", e.Kind, e.Value, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Parse validates and parses a quantity string for the given field kind.
func Parse(kind Kind, value string) (resource.Quantity, error) {
	q, err := resource.ParseQuantity(value)
	if err != nil {
		return resource.Quantity{}, &Error{Kind: kind, Value: value, Err: err}
	}
	return q, nil
}
