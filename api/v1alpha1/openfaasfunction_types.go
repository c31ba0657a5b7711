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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// LastAppliedSpecAnnotation is the key under which the operator stores the
// JSON-serialized spec it most recently projected onto the owned Deployment.
const LastAppliedSpecAnnotation = "openfaasfunctions.operato.rs/last-applied-spec"

// FunctionIdentityLabel is the sole identity label stamped on every owned
// object and merged onto the pod template; it never loses to a user label.
const FunctionIdentityLabel = "faas_function"

// FinalizerName is carried over from the original CRD definition. The
// reconciler does not use a finalizer: owned children are removed by
// Kubernetes garbage collection via the controller owner reference, per
// spec.md's Lifecycle section. The constant is kept because it is part of
// the wire-compatible CRD definition this API is a translation of.
const FinalizerName = "openfaasfunctions.operato.rs/finalizer"

// OpenFaasFunctionSpec is the desired state of an OpenFaaS function,
// translated by the operator into a Deployment and a Service.
type OpenFaasFunctionSpec struct {
	// Service is the name used for both the Deployment and the Service.
	// Changing it is treated as a rename.
	Service string `json:"service"`

	// Image is a fully-qualified container image reference.
	Image string `json:"image"`

	// Namespace is where the function's workload should land. It must
	// equal the operator's configured function namespace, or be omitted.
	// +optional
	Namespace *string `json:"namespace,omitempty"`

	// EnvProcess overrides the fprocess environment variable and can be
	// used with the watchdog.
	// +optional
	EnvProcess *string `json:"envProcess,omitempty"`

	// EnvVars sets additional environment variables for the function
	// runtime.
	// +optional
	EnvVars map[string]string `json:"envVars,omitempty"`

	// Constraints are ordered `KEY==VALUE` strings, specific to the
	// faas-provider, translated into a pod node selector.
	// +optional
	Constraints []string `json:"constraints,omitempty"`

	// Secrets names existing Secret objects in the function namespace to
	// project read-only into the container.
	// +optional
	Secrets []string `json:"secrets,omitempty"`

	// Labels are user metadata merged onto the pod template. They never
	// override the FunctionIdentityLabel.
	// +optional
	Labels map[string]string `json:"labels,omitempty"`

	// Annotations are user metadata merged onto both object metadata and
	// pod template metadata.
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`

	// Limits caps CPU/memory for the function container.
	// +optional
	Limits *FunctionResources `json:"limits,omitempty"`

	// Requests reserves CPU/memory for the function container.
	// +optional
	Requests *FunctionResources `json:"requests,omitempty"`

	// ReadOnlyRootFilesystem removes write access from the container's
	// root filesystem mount point.
	// +optional
	ReadOnlyRootFilesystem *bool `json:"readOnlyRootFilesystem,omitempty"`

	// SecretsMountPath overrides where the projected secrets volume is
	// mounted. Defaults to /var/openfaas/secrets.
	// +optional
	SecretsMountPath *string `json:"secretsMountPath,omitempty"`
}

// FunctionResources names the CPU and memory quantities for a limits or
// requests block. Both fields are optional Kubernetes quantity strings.
type FunctionResources struct {
	// +optional
	CPU *string `json:"cpu,omitempty"`
	// +optional
	Memory *string `json:"memory,omitempty"`
}

// OpenFaasFunctionStatus holds the condition list the operator reports
// back. In practice a single "Ready" condition is carried.
type OpenFaasFunctionStatus struct {
	// +optional
	Conditions []OpenFaasFunctionCondition `json:"conditions,omitempty"`
}

// OpenFaasFunctionConditionType is always "Ready" today; kept as its own
// type so a second condition type can be added without breaking callers.
type OpenFaasFunctionConditionType string

// ConditionReady is the only condition type this operator reports.
const ConditionReady OpenFaasFunctionConditionType = "Ready"

// OpenFaasFunctionCondition mirrors the wire condition shape described in
// spec.md §3/§9: a reason tag from the closed set in §7, a human message,
// a True/False status, and the time it was last set.
type OpenFaasFunctionCondition struct {
	Type               OpenFaasFunctionConditionType `json:"type"`
	Status             metav1.ConditionStatus        `json:"status"`
	Reason             Reason                         `json:"reason"`
	Message            string                         `json:"message"`
	LastUpdateTime     metav1.Time                    `json:"lastUpdateTime"`
}

// Reason is the closed set of status reason tags from spec.md §7.
type Reason string

const (
	ReasonOk                       Reason = "Ok"
	ReasonInvalidCRDNamespace      Reason = "InvalidCRDNamespace"
	ReasonInvalidFunctionNamespace Reason = "InvalidFunctionNamespace"
	ReasonCPUQuantity              Reason = "CPUQuantity"
	ReasonMemoryQuantity           Reason = "MemoryQuantity"
	ReasonDeploymentAlreadyExists  Reason = "DeploymentAlreadyExists"
	ReasonDeploymentNotReady       Reason = "DeploymentNotReady"
	ReasonServiceAlreadyExists     Reason = "ServiceAlreadyExists"
	ReasonSecretsNotFound          Reason = "SecretsNotFound"
)

// Message returns the canonical human-readable text for a reason tag, per
// spec.md §7 and crds/impls.rs's OpenFaasFunctionStatusConditionMessage.
func (r Reason) Message() string {
	switch r {
	case ReasonOk:
		return "Reconciled successfully"
	case ReasonInvalidCRDNamespace:
		return "The CRD's namespace does not match the functions namespace"
	case ReasonInvalidFunctionNamespace:
		return "The function's namespace does not match the functions namespace"
	case ReasonCPUQuantity:
		return "A function's cpu quantity is invalid"
	case ReasonMemoryQuantity:
		return "A function's memory quantity is invalid"
	case ReasonDeploymentAlreadyExists:
		return "The function's deployment already deployed by third party"
	case ReasonDeploymentNotReady:
		return "The function's deployment is not ready"
	case ReasonServiceAlreadyExists:
		return "The function's service already deployed by third party"
	case ReasonSecretsNotFound:
		return "The given secrets to mount do not exist"
	default:
		return ""
	}
}

// ConditionStatus returns True iff the reason is Ok, False otherwise, per
// spec.md §4.C.
func (r Reason) ConditionStatus() metav1.ConditionStatus {
	if r == ReasonOk {
		return metav1.ConditionTrue
	}
	return metav1.ConditionFalse
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:path=openfaasfunctions,scope=Namespaced

// OpenFaaSFunction is the Schema for the openfaasfunctions API.
type OpenFaaSFunction struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   OpenFaasFunctionSpec   `json:"spec,omitempty"`
	Status OpenFaasFunctionStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// OpenFaaSFunctionList contains a list of OpenFaaSFunction.
type OpenFaaSFunctionList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []OpenFaaSFunction `json:"items"`
}

func init() {
	SchemeBuilder.Register(&OpenFaaSFunction{}, &OpenFaaSFunctionList{})
}

// PossibleReason returns the reason tag of the first condition, if any,
// mirroring OpenFaasFunctionStatus::possible_status in crds/impls.rs.
func (s *OpenFaasFunctionStatus) PossibleReason() (Reason, bool) {
	if len(s.Conditions) == 0 {
		return "", false
	}
	return s.Conditions[0].Reason, true
}
