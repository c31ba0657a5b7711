//go:build !ignore_autogenerated

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

// Code generated by hand to match controller-gen's object-deepcopy-gen output shape. DO NOT EDIT.

package v1alpha1

import (
	runtime "k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *FunctionResources) DeepCopyInto(out *FunctionResources) {
	*out = *in
	if in.CPU != nil {
		out.CPU = new(string)
		*out.CPU = *in.CPU
	}
	if in.Memory != nil {
		out.Memory = new(string)
		*out.Memory = *in.Memory
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new FunctionResources.
func (in *FunctionResources) DeepCopy() *FunctionResources {
	if in == nil {
		return nil
	}
	out := new(FunctionResources)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *OpenFaasFunctionCondition) DeepCopyInto(out *OpenFaasFunctionCondition) {
	*out = *in
	in.LastUpdateTime.DeepCopyInto(&out.LastUpdateTime)
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new OpenFaasFunctionCondition.
func (in *OpenFaasFunctionCondition) DeepCopy() *OpenFaasFunctionCondition {
	if in == nil {
		return nil
	}
	out := new(OpenFaasFunctionCondition)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *OpenFaasFunctionSpec) DeepCopyInto(out *OpenFaasFunctionSpec) {
	*out = *in
	if in.Namespace != nil {
		out.Namespace = new(string)
		*out.Namespace = *in.Namespace
	}
	if in.EnvProcess != nil {
		out.EnvProcess = new(string)
		*out.EnvProcess = *in.EnvProcess
	}
	if in.EnvVars != nil {
		l := make(map[string]string, len(in.EnvVars))
		for k, v := range in.EnvVars {
			l[k] = v
		}
		out.EnvVars = l
	}
	if in.Constraints != nil {
		l := make([]string, len(in.Constraints))
		copy(l, in.Constraints)
		out.Constraints = l
	}
	if in.Secrets != nil {
		l := make([]string, len(in.Secrets))
		copy(l, in.Secrets)
		out.Secrets = l
	}
	if in.Labels != nil {
		l := make(map[string]string, len(in.Labels))
		for k, v := range in.Labels {
			l[k] = v
		}
		out.Labels = l
	}
	if in.Annotations != nil {
		l := make(map[string]string, len(in.Annotations))
		for k, v := range in.Annotations {
			l[k] = v
		}
		out.Annotations = l
	}
	if in.Limits != nil {
		out.Limits = in.Limits.DeepCopy()
	}
	if in.Requests != nil {
		out.Requests = in.Requests.DeepCopy()
	}
	if in.ReadOnlyRootFilesystem != nil {
		out.ReadOnlyRootFilesystem = new(bool)
		*out.ReadOnlyRootFilesystem = *in.ReadOnlyRootFilesystem
	}
	if in.SecretsMountPath != nil {
		out.SecretsMountPath = new(string)
		*out.SecretsMountPath = *in.SecretsMountPath
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new OpenFaasFunctionSpec.
func (in *OpenFaasFunctionSpec) DeepCopy() *OpenFaasFunctionSpec {
	if in == nil {
		return nil
	}
	out := new(OpenFaasFunctionSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *OpenFaasFunctionStatus) DeepCopyInto(out *OpenFaasFunctionStatus) {
	*out = *in
	if in.Conditions != nil {
		l := make([]OpenFaasFunctionCondition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&l[i])
		}
		out.Conditions = l
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new OpenFaasFunctionStatus.
func (in *OpenFaasFunctionStatus) DeepCopy() *OpenFaasFunctionStatus {
	if in == nil {
		return nil
	}
	out := new(OpenFaasFunctionStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *OpenFaaSFunction) DeepCopyInto(out *OpenFaaSFunction) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new OpenFaaSFunction.
func (in *OpenFaaSFunction) DeepCopy() *OpenFaaSFunction {
	if in == nil {
		return nil
	}
	out := new(OpenFaaSFunction)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is a deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *OpenFaaSFunction) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is a deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *OpenFaaSFunctionList) DeepCopyInto(out *OpenFaaSFunctionList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		l := make([]OpenFaaSFunction, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&l[i])
		}
		out.Items = l
	}
}

// DeepCopy is a deepcopy function, copying the receiver, creating a new OpenFaaSFunctionList.
func (in *OpenFaaSFunctionList) DeepCopy() *OpenFaaSFunctionList {
	if in == nil {
		return nil
	}
	out := new(OpenFaaSFunctionList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is a deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *OpenFaaSFunctionList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
