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

package controller

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/operato-rs/openfaas-function-operator/api/v1alpha1"
	"github.com/operato-rs/openfaas-function-operator/internal/drift"
	"github.com/operato-rs/openfaas-function-operator/internal/projector"
	"github.com/operato-rs/openfaas-function-operator/internal/quantity"
	"github.com/operato-rs/openfaas-function-operator/internal/status"
)

// requeueAfter is how long the reconciler asks to be retried after an
// unclassified error, matching on_error's Action::requeue(Duration::from_secs(10))
// in src/operator/controller/mod.rs.
const requeueAfter = 10 * time.Second

// UpdateStrategy selects how drift between a spec and its Deployment is
// handled. Grounded on UpdateStrategy in src/operator/controller/mod.rs.
type UpdateStrategy string

const (
	// UpdateStrategyOneWay recreates the Deployment whenever its
	// last-applied-spec annotation diverges from the current spec.
	UpdateStrategyOneWay UpdateStrategy = "one-way"
	// UpdateStrategyStrategic is accepted but not implemented: the
	// reconciler logs a warning and falls back to OneWay behavior, mirroring
	// the Rust operator's unimplemented Strategic branch.
	UpdateStrategyStrategic UpdateStrategy = "strategic"
)

// OpenFaaSFunctionReconciler reconciles an OpenFaaSFunction object into a
// Deployment and a Service. Grounded on WebsiteReconciler in
// website_controller.go for the controller-runtime shape, and on
// OperatorInner in src/operator/controller/mod.rs for the reconcile logic.
type OpenFaaSFunctionReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// FunctionsNamespace is the single namespace the operator manages.
	// Both the OpenFaaSFunction and the Deployment/Service it projects must
	// live here.
	FunctionsNamespace string

	// UpdateStrategy controls drift handling for owned Deployments.
	UpdateStrategy UpdateStrategy
}

//+kubebuilder:rbac:groups=operato.rs,resources=openfaasfunctions,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=operato.rs,resources=openfaasfunctions/status,verbs=get;update;patch
//+kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=core,resources=services,verbs=get;list;watch;create;update;patch;delete
//+kubebuilder:rbac:groups=core,resources=secrets,verbs=get;list;watch

// Reconcile drives an OpenFaaSFunction toward its desired Deployment and
// Service, reporting outcomes via its Ready condition. Grounded on
// OperatorInner::apply in src/operator/controller/mod.rs: a sequence of
// checks, each of which may short-circuit the rest by requesting the
// reconciler await the next change.
func (r *OpenFaaSFunctionReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	fn := &v1alpha1.OpenFaaSFunction{}
	if err := r.Get(ctx, req.NamespacedName, fn); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		logger.Error(err, "failed to retrieve OpenFaaSFunction", "name", req.Name)
		return ctrl.Result{}, err
	}

	logger.Info("applying resource", "name", fn.Name, "namespace", fn.Namespace)

	writer := status.NewWriter(r.Client)

	steps := []func(context.Context, *v1alpha1.OpenFaaSFunction) (bool, error){
		r.checkResourceNamespace,
		r.checkFunctionNamespace,
		r.checkDeployment,
		r.checkService,
		func(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
			return true, writer.Replace(ctx, fn, v1alpha1.ReasonOk)
		},
	}

	for _, step := range steps {
		awaitChange, err := step(ctx, fn)
		if err != nil {
			logger.Error(err, "reconciliation failed, requeuing", "name", fn.Name)
			return ctrl.Result{RequeueAfter: requeueAfter}, nil
		}
		if awaitChange {
			return ctrl.Result{}, nil
		}
	}

	logger.Info("awaiting change", "name", fn.Name)
	return ctrl.Result{}, nil
}

// checkResourceNamespace rejects an OpenFaaSFunction declared outside the
// functions namespace. Grounded on check_resource_namespace.
func (r *OpenFaaSFunctionReconciler) checkResourceNamespace(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	if fn.Namespace == r.FunctionsNamespace {
		return false, nil
	}

	log.FromContext(ctx).Info("resource namespace does not match functions namespace", "namespace", fn.Namespace)
	if err := status.NewWriter(r.Client).Replace(ctx, fn, v1alpha1.ReasonInvalidCRDNamespace); err != nil {
		return false, err
	}
	return true, nil
}

// checkFunctionNamespace rejects a spec.namespace that names a namespace
// other than the functions namespace. An absent spec.namespace defaults to
// the functions namespace. Grounded on check_function_namespace.
func (r *OpenFaaSFunctionReconciler) checkFunctionNamespace(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	if fn.Spec.Namespace == nil || *fn.Spec.Namespace == r.FunctionsNamespace {
		return false, nil
	}

	log.FromContext(ctx).Info("function namespace does not match functions namespace", "functionNamespace", *fn.Spec.Namespace)
	if err := status.NewWriter(r.Client).Replace(ctx, fn, v1alpha1.ReasonInvalidFunctionNamespace); err != nil {
		return false, err
	}
	return true, nil
}

// checkDeployment ensures the owned Deployment exists, is ready, and
// matches the spec, then sweeps any differently-named Deployment this
// OpenFaaSFunction used to own. Grounded on check_deployment.
func (r *OpenFaaSFunctionReconciler) checkDeployment(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	name := fn.Spec.Service

	current := &appsv1.Deployment{}
	err := r.Get(ctx, types.NamespacedName{Name: name, Namespace: r.FunctionsNamespace}, current)
	switch {
	case apierrors.IsNotFound(err):
		if await, err := r.checkSecrets(ctx, fn); await || err != nil {
			return await, err
		}
		if await, err := r.createDeployment(ctx, fn, nil); await || err != nil {
			return await, err
		}
	case err != nil:
		return false, fmt.Errorf("getting deployment %q: %w", name, err)
	default:
		if await, err := r.checkExistingDeployment(ctx, fn, current); await || err != nil {
			return await, err
		}
	}

	return r.deleteOldDeployments(ctx, fn)
}

func (r *OpenFaaSFunctionReconciler) isOwnedBy(fn *v1alpha1.OpenFaaSFunction, owner []metav1.OwnerReference) bool {
	for _, ref := range owner {
		if ref.UID == fn.UID {
			return true
		}
	}
	return false
}

// checkExistingDeployment verifies ownership and readiness, then applies
// the configured update strategy. Grounded on check_existing_deployment.
func (r *OpenFaaSFunctionReconciler) checkExistingDeployment(ctx context.Context, fn *v1alpha1.OpenFaaSFunction, current *appsv1.Deployment) (bool, error) {
	logger := log.FromContext(ctx)

	if !r.isOwnedBy(fn, current.OwnerReferences) {
		logger.Info("deployment lacks owner reference", "name", current.Name)
		if err := status.NewWriter(r.Client).Replace(ctx, fn, v1alpha1.ReasonDeploymentAlreadyExists); err != nil {
			return false, err
		}
		return true, nil
	}

	if current.Status.ReadyReplicas == 0 {
		logger.Info("deployment has no ready replicas", "name", current.Name)
		if err := status.NewWriter(r.Client).Replace(ctx, fn, v1alpha1.ReasonDeploymentNotReady); err != nil {
			return false, err
		}
		return true, nil
	}

	switch r.UpdateStrategy {
	case UpdateStrategyStrategic:
		logger.Info("strategic update strategy is not implemented, falling back to one-way")
		fallthrough
	default:
		if !drift.NeedsRecreation(current, fn.Spec) {
			return false, nil
		}
		logger.Info("deployment needs recreation", "name", current.Name)
		if await, err := r.checkSecrets(ctx, fn); await || err != nil {
			return await, err
		}
		return r.createDeployment(ctx, fn, current)
	}
}

// createDeployment projects fn into a Deployment and creates or, when
// existing is non-nil, replaces it. Grounded on create_deployment.
func (r *OpenFaaSFunctionReconciler) createDeployment(ctx context.Context, fn *v1alpha1.OpenFaaSFunction, existing *appsv1.Deployment) (bool, error) {
	deployment, err := projector.DeploymentWithOwner(fn, r.Scheme)
	if err != nil {
		log.FromContext(ctx).Error(err, "failed to generate deployment")
		if reason, ok := quantityReason(err); ok {
			if werr := status.NewWriter(r.Client).Replace(ctx, fn, reason); werr != nil {
				return false, werr
			}
			return true, nil
		}
		return false, fmt.Errorf("generating deployment: %w", err)
	}

	if existing != nil {
		deployment.ResourceVersion = existing.ResourceVersion
		if err := r.Update(ctx, deployment); err != nil {
			return false, fmt.Errorf("replacing deployment %q: %w", deployment.Name, err)
		}
	} else if err := r.Create(ctx, deployment); err != nil {
		return false, fmt.Errorf("creating deployment %q: %w", deployment.Name, err)
	}

	log.FromContext(ctx).Info("deployment applied", "name", deployment.Name)
	return true, nil
}

// deleteOldDeployments removes Deployments this OpenFaaSFunction owns that
// no longer match its current service name, handling renames. Grounded on
// delete_old_deployments.
func (r *OpenFaaSFunctionReconciler) deleteOldDeployments(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	var list appsv1.DeploymentList
	if err := r.List(ctx, &list, client.InNamespace(r.FunctionsNamespace)); err != nil {
		return false, fmt.Errorf("listing deployments: %w", err)
	}

	for i := range list.Items {
		old := &list.Items[i]
		if old.Name == fn.Spec.Service || !r.isOwnedBy(fn, old.OwnerReferences) {
			continue
		}
		log.FromContext(ctx).Info("deleting old deployment", "name", old.Name)
		if err := r.Delete(ctx, old); err != nil && !apierrors.IsNotFound(err) {
			return false, fmt.Errorf("deleting old deployment %q: %w", old.Name, err)
		}
	}

	return false, nil
}

// checkSecrets confirms every projected secret exists in the functions
// namespace. Grounded on check_secrets.
func (r *OpenFaaSFunctionReconciler) checkSecrets(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	if len(fn.Spec.Secrets) == 0 {
		return false, nil
	}

	var list corev1.SecretList
	if err := r.List(ctx, &list, client.InNamespace(r.FunctionsNamespace)); err != nil {
		return false, fmt.Errorf("listing secrets: %w", err)
	}

	existing := make(map[string]struct{}, len(list.Items))
	for _, secret := range list.Items {
		existing[secret.Name] = struct{}{}
	}

	for _, wanted := range fn.Spec.Secrets {
		if _, ok := existing[wanted]; !ok {
			log.FromContext(ctx).Info("secret does not exist", "secret", wanted)
			if err := status.NewWriter(r.Client).Replace(ctx, fn, v1alpha1.ReasonSecretsNotFound); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	return false, nil
}

// checkService ensures the owned Service exists, then sweeps any
// differently-named Service this OpenFaaSFunction used to own. Grounded on
// check_service.
func (r *OpenFaaSFunctionReconciler) checkService(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	name := fn.Spec.Service

	current := &corev1.Service{}
	err := r.Get(ctx, types.NamespacedName{Name: name, Namespace: r.FunctionsNamespace}, current)
	switch {
	case apierrors.IsNotFound(err):
		if await, err := r.createService(ctx, fn); await || err != nil {
			return await, err
		}
	case err != nil:
		return false, fmt.Errorf("getting service %q: %w", name, err)
	default:
		if !r.isOwnedBy(fn, current.OwnerReferences) {
			log.FromContext(ctx).Info("service lacks owner reference", "name", current.Name)
			if err := status.NewWriter(r.Client).Replace(ctx, fn, v1alpha1.ReasonServiceAlreadyExists); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	return r.deleteOldServices(ctx, fn)
}

// createService projects fn into a Service and creates it. Grounded on
// create_service.
func (r *OpenFaaSFunctionReconciler) createService(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	service, err := projector.ServiceWithOwner(fn, r.Scheme)
	if err != nil {
		return false, fmt.Errorf("generating service: %w", err)
	}

	if err := r.Create(ctx, service); err != nil {
		return false, fmt.Errorf("creating service %q: %w", service.Name, err)
	}

	log.FromContext(ctx).Info("service created", "name", service.Name)
	return false, nil
}

// deleteOldServices removes Services this OpenFaaSFunction owns that no
// longer match its current service name. Grounded on delete_old_services.
func (r *OpenFaaSFunctionReconciler) deleteOldServices(ctx context.Context, fn *v1alpha1.OpenFaaSFunction) (bool, error) {
	var list corev1.ServiceList
	if err := r.List(ctx, &list, client.InNamespace(r.FunctionsNamespace)); err != nil {
		return false, fmt.Errorf("listing services: %w", err)
	}

	for i := range list.Items {
		old := &list.Items[i]
		if old.Name == fn.Spec.Service || !r.isOwnedBy(fn, old.OwnerReferences) {
			continue
		}
		log.FromContext(ctx).Info("deleting old service", "name", old.Name)
		if err := r.Delete(ctx, old); err != nil && !apierrors.IsNotFound(err) {
			return false, fmt.Errorf("deleting old service %q: %w", old.Name, err)
		}
	}

	return false, nil
}

// quantityReason maps a quantity-parsing failure surfaced from the
// projector into the status reason it corresponds to, mirroring
// Option<OpenFaasFunctionPossibleStatus>::from(&IntoDeploymentError) in
// crds/impls.rs.
func quantityReason(err error) (v1alpha1.Reason, bool) {
	var qerr *quantity.Error
	if !goerrors.As(err, &qerr) {
		return "", false
	}
	if qerr.Kind == quantity.CPU {
		return v1alpha1.ReasonCPUQuantity, true
	}
	return v1alpha1.ReasonMemoryQuantity, true
}

// SetupWithManager wires the reconciler to watch OpenFaaSFunction objects
// plus the Deployments and Services it owns, per spec.md's watch
// invariant. Grounded on WebsiteReconciler.SetupWithManager in
// website_controller.go, extended with Owns() the way
// webapp_controller.go wires its children.
func (r *OpenFaaSFunctionReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.OpenFaaSFunction{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Complete(r)
}
