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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"github.com/operato-rs/openfaas-function-operator/api/v1alpha1"
)

func markDeploymentReady(dep *appsv1.Deployment) {
	dep.Status.ReadyReplicas = 1
	Expect(k8sClient.Status().Update(ctx, dep)).To(Succeed())
}

var _ = Describe("OpenFaaSFunction reconciliation", func() {
	ptr := func(s string) *string { return &s }

	It("creates a Deployment and a Service owned by the function", func() {
		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "figlet", Namespace: functionsNamespace},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service: "figlet",
				Image:   "functions/figlet:latest",
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		var dep appsv1.Deployment
		Eventually(func() error {
			return k8sClient.Get(ctx, types.NamespacedName{Name: "figlet", Namespace: functionsNamespace}, &dep)
		}).Should(Succeed())
		Expect(dep.OwnerReferences).NotTo(BeEmpty())
		markDeploymentReady(&dep)

		var svc corev1.Service
		Eventually(func() error {
			return k8sClient.Get(ctx, types.NamespacedName{Name: "figlet", Namespace: functionsNamespace}, &svc)
		}).Should(Succeed())
		Expect(svc.OwnerReferences).NotTo(BeEmpty())
	})

	It("reports DeploymentNotReady until the Deployment has ready replicas", func() {
		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "not-ready-fn", Namespace: functionsNamespace},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service: "not-ready-fn",
				Image:   "functions/figlet:latest",
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonDeploymentNotReady))

		var dep appsv1.Deployment
		Expect(k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &dep)).To(Succeed())
		markDeploymentReady(&dep)

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonOk))
	})

	It("reports InvalidFunctionNamespace when spec.namespace names another namespace", func() {
		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "wrong-ns-fn", Namespace: functionsNamespace},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service:   "wrong-ns-fn",
				Image:     "functions/figlet:latest",
				Namespace: ptr("some-other-namespace"),
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonInvalidFunctionNamespace))
	})

	It("reports SecretsNotFound when a projected secret does not exist", func() {
		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "needs-secret-fn", Namespace: functionsNamespace},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service: "needs-secret-fn",
				Image:   "functions/figlet:latest",
				Secrets: []string{"does-not-exist"},
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonSecretsNotFound))

		var dep appsv1.Deployment
		Expect(k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &dep)).NotTo(Succeed())

		secret := &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Name: "does-not-exist", Namespace: functionsNamespace},
			StringData: map[string]string{"key": "value"},
		}
		Expect(k8sClient.Create(ctx, secret)).To(Succeed())

		// Secrets are not watched, so touch the function to re-trigger a reconcile.
		Eventually(func() error {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return err
			}
			if current.Annotations == nil {
				current.Annotations = map[string]string{}
			}
			current.Annotations["test.operato.rs/retrigger"] = "secret-created"
			return k8sClient.Update(ctx, &current)
		}).Should(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonDeploymentNotReady))

		Expect(k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &dep)).To(Succeed())
		markDeploymentReady(&dep)

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonOk))
	})

	It("reports DeploymentAlreadyExists and leaves a foreign Deployment untouched", func() {
		foreign := &appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: "collision-fn", Namespace: functionsNamespace},
			Spec: appsv1.DeploymentSpec{
				Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "collision-fn"}},
				Template: corev1.PodTemplateSpec{
					ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": "collision-fn"}},
					Spec: corev1.PodSpec{
						Containers: []corev1.Container{{Name: "placeholder", Image: "busybox:latest"}},
					},
				},
			},
		}
		Expect(k8sClient.Create(ctx, foreign)).To(Succeed())

		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "collision-fn", Namespace: functionsNamespace},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service: "collision-fn",
				Image:   "functions/figlet:latest",
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonDeploymentAlreadyExists))

		Consistently(func() (string, error) {
			var current appsv1.Deployment
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: "collision-fn", Namespace: functionsNamespace}, &current); err != nil {
				return "", err
			}
			return current.Spec.Template.Spec.Containers[0].Image, nil
		}).Should(Equal("busybox:latest"))

		var current appsv1.Deployment
		Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "collision-fn", Namespace: functionsNamespace}, &current)).To(Succeed())
		Expect(current.OwnerReferences).To(BeEmpty())
	})

	It("keeps the existing Deployment on an invalid cpu quantity and recovers once it is fixed", func() {
		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "quantity-fn", Namespace: functionsNamespace},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service: "quantity-fn",
				Image:   "functions/figlet:latest",
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		var dep appsv1.Deployment
		Eventually(func() error {
			return k8sClient.Get(ctx, types.NamespacedName{Name: "quantity-fn", Namespace: functionsNamespace}, &dep)
		}).Should(Succeed())
		markDeploymentReady(&dep)

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonOk))

		originalImage := dep.Spec.Template.Spec.Containers[0].Image

		Eventually(func() error {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return err
			}
			current.Spec.Limits = &v1alpha1.FunctionResources{CPU: ptr("not-a-quantity")}
			return k8sClient.Update(ctx, &current)
		}).Should(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonCPUQuantity))

		Consistently(func() (string, error) {
			var current appsv1.Deployment
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: "quantity-fn", Namespace: functionsNamespace}, &current); err != nil {
				return "", err
			}
			return current.Spec.Template.Spec.Containers[0].Image, nil
		}).Should(Equal(originalImage))

		Eventually(func() error {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return err
			}
			current.Spec.Limits = &v1alpha1.FunctionResources{CPU: ptr("100m")}
			return k8sClient.Update(ctx, &current)
		}).Should(Succeed())

		Eventually(func() error {
			var current appsv1.Deployment
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: "quantity-fn", Namespace: functionsNamespace}, &current); err != nil {
				return err
			}
			if current.Status.ReadyReplicas == 0 {
				markDeploymentReady(&current)
			}
			return nil
		}).Should(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonOk))

		var final appsv1.Deployment
		Expect(k8sClient.Get(ctx, types.NamespacedName{Name: "quantity-fn", Namespace: functionsNamespace}, &final)).To(Succeed())
		Expect(final.Annotations[v1alpha1.LastAppliedSpecAnnotation]).To(ContainSubstring("100m"))
	})

	It("deletes the previous Deployment and Service when the service name changes", func() {
		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "renaming-fn", Namespace: functionsNamespace},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service: "renaming-fn-v1",
				Image:   "functions/figlet:latest",
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		var v1Dep appsv1.Deployment
		Eventually(func() error {
			return k8sClient.Get(ctx, types.NamespacedName{Name: "renaming-fn-v1", Namespace: functionsNamespace}, &v1Dep)
		}).Should(Succeed())
		markDeploymentReady(&v1Dep)

		Eventually(func() error {
			return k8sClient.Get(ctx, types.NamespacedName{Name: "renaming-fn-v1", Namespace: functionsNamespace}, &corev1.Service{})
		}).Should(Succeed())

		Eventually(func() error {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: functionsNamespace}, &current); err != nil {
				return err
			}
			current.Spec.Service = "renaming-fn-v2"
			return k8sClient.Update(ctx, &current)
		}).Should(Succeed())

		var v2Dep appsv1.Deployment
		Eventually(func() error {
			return k8sClient.Get(ctx, types.NamespacedName{Name: "renaming-fn-v2", Namespace: functionsNamespace}, &v2Dep)
		}).Should(Succeed())
		markDeploymentReady(&v2Dep)

		Eventually(func() bool {
			err := k8sClient.Get(ctx, types.NamespacedName{Name: "renaming-fn-v1", Namespace: functionsNamespace}, &appsv1.Deployment{})
			return err != nil
		}).Should(BeTrue())

		Eventually(func() bool {
			err := k8sClient.Get(ctx, types.NamespacedName{Name: "renaming-fn-v1", Namespace: functionsNamespace}, &corev1.Service{})
			return err != nil
		}).Should(BeTrue())
	})
})

var _ = Describe("OpenFaaSFunction namespace validation", func() {
	It("reports InvalidCRDNamespace for a declaration outside the functions namespace", func() {
		other := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "some-app-namespace"}}
		Expect(k8sClient.Create(context.Background(), other)).To(Succeed())

		fn := &v1alpha1.OpenFaaSFunction{
			ObjectMeta: metav1.ObjectMeta{Name: "misplaced-fn", Namespace: "some-app-namespace"},
			Spec: v1alpha1.OpenFaasFunctionSpec{
				Service: "misplaced-fn",
				Image:   "functions/figlet:latest",
			},
		}
		Expect(k8sClient.Create(ctx, fn)).To(Succeed())

		Eventually(func() v1alpha1.Reason {
			var current v1alpha1.OpenFaaSFunction
			if err := k8sClient.Get(ctx, types.NamespacedName{Name: fn.Name, Namespace: "some-app-namespace"}, &current); err != nil {
				return ""
			}
			reason, ok := current.Status.PossibleReason()
			if !ok {
				return ""
			}
			return reason
		}).Should(Equal(v1alpha1.ReasonInvalidCRDNamespace))
	})
})
