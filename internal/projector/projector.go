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

// Package projector is the pure, total (modulo quantity parsing) function
// from an OpenFaaSFunction spec to the Deployment and Service that serve
// it. Grounded on crds/impls.rs's From/TryFrom impls on
// OpenFaasFunctionSpec and OpenFaaSFunction; this is spec.md Component A.
package projector

import (
	"encoding/json"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/operato-rs/openfaas-function-operator/api/v1alpha1"
	"github.com/operato-rs/openfaas-function-operator/internal/quantity"
)

const (
	httpPortName  = "http"
	httpPort      = 8080
	healthPath    = "/_/health"
	tmpVolumeName = "tmp"
	tmpMountPath  = "/tmp"

	defaultSecretsMountPath = "/var/openfaas/secrets"

	envProcessName = "fprocess"
)

// OwnerReferenceError signals that the declaration lacks the identity
// fields the runtime needs to construct a controller owner reference.
// Grounded on IntoDeploymentError::FailedToGetOwnerReference /
// IntoServiceError::FailedToGetOwnerReference in crds/defs.rs.
type OwnerReferenceError struct {
	Err error
}

func (e *OwnerReferenceError) Error() string {
	return fmt.Sprintf("failed to set owner reference: %s", e.Err)
}

func (e *OwnerReferenceError) Unwrap() error { return e.Err }

func secretsMountPath(spec *v1alpha1.OpenFaasFunctionSpec) string {
	if spec.SecretsMountPath != nil && *spec.SecretsMountPath != "" {
		return *spec.SecretsMountPath
	}
	return defaultSecretsMountPath
}

func secretsVolumeName(service string) string {
	return service + "-projected-secrets"
}

func metaLabels(spec *v1alpha1.OpenFaasFunctionSpec) map[string]string {
	return map[string]string{v1alpha1.FunctionIdentityLabel: spec.Service}
}

// podTemplateLabels merges user labels with the identity label; the
// identity label always wins on key collision, per spec.md §4.A.
func podTemplateLabels(spec *v1alpha1.OpenFaasFunctionSpec) map[string]string {
	labels := make(map[string]string, len(spec.Labels)+1)
	for k, v := range spec.Labels {
		labels[k] = v
	}
	for k, v := range metaLabels(spec) {
		labels[k] = v
	}
	return labels
}

// lastAppliedSpecJSON serializes spec the same way it will be compared by
// internal/drift: plain encoding/json, which sorts map keys, giving a
// stable annotation value across repeated projections of an unchanged spec.
func lastAppliedSpecJSON(spec *v1alpha1.OpenFaasFunctionSpec) (string, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("serializing spec for last-applied annotation: %w", err)
	}
	return string(b), nil
}

// objectMeta builds the metadata shared by the Deployment and the Service:
// same name, same namespace, same identity label, user annotations plus the
// last-applied-spec annotation. Grounded on to_deployment_meta /
// to_service_meta in crds/impls.rs, which are deliberately identical.
func objectMeta(fn *v1alpha1.OpenFaaSFunction) (metav1.ObjectMeta, error) {
	spec := &fn.Spec

	annotations := make(map[string]string, len(spec.Annotations)+1)
	for k, v := range spec.Annotations {
		annotations[k] = v
	}

	lastApplied, err := lastAppliedSpecJSON(spec)
	if err != nil {
		return metav1.ObjectMeta{}, err
	}
	annotations[v1alpha1.LastAppliedSpecAnnotation] = lastApplied

	return metav1.ObjectMeta{
		Name:        spec.Service,
		Namespace:   fn.Namespace,
		Labels:      metaLabels(spec),
		Annotations: annotations,
	}, nil
}

func podTemplateMeta(spec *v1alpha1.OpenFaasFunctionSpec) metav1.ObjectMeta {
	var annotations map[string]string
	if len(spec.Annotations) > 0 {
		annotations = make(map[string]string, len(spec.Annotations))
		for k, v := range spec.Annotations {
			annotations[k] = v
		}
	}
	return metav1.ObjectMeta{
		Name:        spec.Service,
		Labels:      podTemplateLabels(spec),
		Annotations: annotations,
	}
}

func envVars(spec *v1alpha1.OpenFaasFunctionSpec) []corev1.EnvVar {
	var env []corev1.EnvVar
	if spec.EnvProcess != nil {
		env = append(env, corev1.EnvVar{Name: envProcessName, Value: *spec.EnvProcess})
	}
	for k, v := range spec.EnvVars {
		env = append(env, corev1.EnvVar{Name: k, Value: v})
	}
	return env
}

func setQuantity(list corev1.ResourceList, kind quantity.Kind, resourceName corev1.ResourceName, value *string) (corev1.ResourceList, error) {
	if value == nil {
		return list, nil
	}
	q, err := quantity.Parse(kind, *value)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = make(corev1.ResourceList, 2)
	}
	list[resourceName] = q
	return list, nil
}

// resourceList parses only the fields the user supplied, per spec.md §4.A:
// "limits/requests each assembled only from the keys the user supplied."
func resourceList(r *v1alpha1.FunctionResources) (corev1.ResourceList, error) {
	if r == nil {
		return nil, nil
	}

	var list corev1.ResourceList
	var err error
	if list, err = setQuantity(list, quantity.CPU, corev1.ResourceCPU, r.CPU); err != nil {
		return nil, err
	}
	if list, err = setQuantity(list, quantity.Memory, corev1.ResourceMemory, r.Memory); err != nil {
		return nil, err
	}
	return list, nil
}

func resourceRequirements(spec *v1alpha1.OpenFaasFunctionSpec) (corev1.ResourceRequirements, error) {
	limits, err := resourceList(spec.Limits)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	requests, err := resourceList(spec.Requests)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	return corev1.ResourceRequirements{Limits: limits, Requests: requests}, nil
}

func shouldCreateTmpVolume(spec *v1alpha1.OpenFaasFunctionSpec) bool {
	return spec.ReadOnlyRootFilesystem != nil && *spec.ReadOnlyRootFilesystem
}

func shouldCreateSecretsVolume(spec *v1alpha1.OpenFaasFunctionSpec) bool {
	return len(spec.Secrets) > 0
}

func volumesAndMounts(spec *v1alpha1.OpenFaasFunctionSpec) ([]corev1.Volume, []corev1.VolumeMount) {
	var volumes []corev1.Volume
	var mounts []corev1.VolumeMount

	if shouldCreateTmpVolume(spec) {
		volumes = append(volumes, corev1.Volume{
			Name:         tmpVolumeName,
			VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: tmpVolumeName, MountPath: tmpMountPath})
	}

	if shouldCreateSecretsVolume(spec) {
		secrets := uniqueStrings(spec.Secrets)
		sources := make([]corev1.VolumeProjection, 0, len(secrets))
		for _, secret := range secrets {
			sources = append(sources, corev1.VolumeProjection{
				Secret: &corev1.SecretProjection{
					LocalObjectReference: corev1.LocalObjectReference{Name: secret},
					Items: []corev1.KeyToPath{
						{Key: secret, Path: secret},
					},
				},
			})
		}

		name := secretsVolumeName(spec.Service)
		volumes = append(volumes, corev1.Volume{
			Name: name,
			VolumeSource: corev1.VolumeSource{
				Projected: &corev1.ProjectedVolumeSource{Sources: sources},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{
			Name:      name,
			MountPath: secretsMountPath(spec),
			ReadOnly:  true,
		})
	}

	return volumes, mounts
}

func healthProbe() *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path:   healthPath,
				Port:   intstr.FromInt(httpPort),
				Scheme: corev1.URISchemeHTTP,
			},
		},
	}
}

func container(spec *v1alpha1.OpenFaasFunctionSpec, mounts []corev1.VolumeMount) (corev1.Container, error) {
	resources, err := resourceRequirements(spec)
	if err != nil {
		return corev1.Container{}, err
	}

	return corev1.Container{
		Name:  spec.Service,
		Image: spec.Image,
		Ports: []corev1.ContainerPort{
			{Name: httpPortName, ContainerPort: httpPort, Protocol: corev1.ProtocolTCP},
		},
		LivenessProbe:  healthProbe(),
		ReadinessProbe: healthProbe(),
		SecurityContext: &corev1.SecurityContext{
			ReadOnlyRootFilesystem: spec.ReadOnlyRootFilesystem,
		},
		VolumeMounts: mounts,
		Resources:    resources,
		Env:          envVars(spec),
	}, nil
}

func podSpec(spec *v1alpha1.OpenFaasFunctionSpec) (corev1.PodSpec, error) {
	volumes, mounts := volumesAndMounts(spec)

	c, err := container(spec, mounts)
	if err != nil {
		return corev1.PodSpec{}, err
	}

	return corev1.PodSpec{
		Containers:   []corev1.Container{c},
		Volumes:      volumes,
		NodeSelector: nodeSelector(spec.Constraints),
	}, nil
}

func deploymentSpec(spec *v1alpha1.OpenFaasFunctionSpec) (appsv1.DeploymentSpec, error) {
	pod, err := podSpec(spec)
	if err != nil {
		return appsv1.DeploymentSpec{}, err
	}

	replicas := int32(1)
	maxSurge := intstr.FromInt(1)
	maxUnavailable := intstr.FromInt(0)

	return appsv1.DeploymentSpec{
		Replicas: &replicas,
		Selector: &metav1.LabelSelector{MatchLabels: metaLabels(spec)},
		Strategy: appsv1.DeploymentStrategy{
			Type: appsv1.RollingUpdateDeploymentStrategyType,
			RollingUpdate: &appsv1.RollingUpdateDeployment{
				MaxSurge:       &maxSurge,
				MaxUnavailable: &maxUnavailable,
			},
		},
		Template: corev1.PodTemplateSpec{
			ObjectMeta: podTemplateMeta(spec),
			Spec:       pod,
		},
	}, nil
}

// Deployment projects fn's spec into a fresh Deployment, without an owner
// reference. Grounded on TryFrom<&OpenFaasFunctionSpec> for Deployment in
// crds/impls.rs.
func Deployment(fn *v1alpha1.OpenFaaSFunction) (*appsv1.Deployment, error) {
	meta, err := objectMeta(fn)
	if err != nil {
		return nil, err
	}
	spec, err := deploymentSpec(&fn.Spec)
	if err != nil {
		return nil, err
	}
	return &appsv1.Deployment{ObjectMeta: meta, Spec: spec}, nil
}

func serviceSpec(spec *v1alpha1.OpenFaasFunctionSpec) corev1.ServiceSpec {
	return corev1.ServiceSpec{
		Selector: metaLabels(spec),
		Ports: []corev1.ServicePort{
			{
				Name:       httpPortName,
				Port:       httpPort,
				TargetPort: intstr.FromInt(httpPort),
				Protocol:   corev1.ProtocolTCP,
			},
		},
	}
}

// Service projects fn's spec into a fresh Service, without an owner
// reference. Grounded on TryFrom<&OpenFaasFunctionSpec> for Service in
// crds/impls.rs.
func Service(fn *v1alpha1.OpenFaaSFunction) (*corev1.Service, error) {
	meta, err := objectMeta(fn)
	if err != nil {
		return nil, err
	}
	return &corev1.Service{ObjectMeta: meta, Spec: serviceSpec(&fn.Spec)}, nil
}

// DeploymentWithOwner projects fn's spec into a Deployment and stamps a
// controller owner reference back onto fn. Grounded on
// TryFrom<&OpenFaaSFunction> for Deployment in crds/impls.rs.
func DeploymentWithOwner(fn *v1alpha1.OpenFaaSFunction, scheme *runtime.Scheme) (*appsv1.Deployment, error) {
	dep, err := Deployment(fn)
	if err != nil {
		return nil, err
	}
	if err := controllerutil.SetControllerReference(fn, dep, scheme); err != nil {
		return nil, &OwnerReferenceError{Err: err}
	}
	return dep, nil
}

// ServiceWithOwner projects fn's spec into a Service and stamps a
// controller owner reference back onto fn. Grounded on
// TryFrom<&OpenFaaSFunction> for Service in crds/impls.rs.
func ServiceWithOwner(fn *v1alpha1.OpenFaaSFunction, scheme *runtime.Scheme) (*corev1.Service, error) {
	svc, err := Service(fn)
	if err != nil {
		return nil, err
	}
	if err := controllerutil.SetControllerReference(fn, svc, scheme); err != nil {
		return nil, &OwnerReferenceError{Err: err}
	}
	return svc, nil
}
