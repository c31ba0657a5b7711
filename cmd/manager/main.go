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

package main

import (
	"flag"
	"os"

	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/operato-rs/openfaas-function-operator/api/v1alpha1"
	"github.com/operato-rs/openfaas-function-operator/internal/controller"
)

const (
	functionsNamespaceEnvVar  = "OPENFAAS_FUNCTIONS_NAMESPACE"
	defaultFunctionsNamespace = "openfaas-fn"

	updateStrategyEnvVar = "OPF_FO_C_UPDATE_STRATEGY"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(v1alpha1.AddToScheme(scheme))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func updateStrategyFromEnv() controller.UpdateStrategy {
	switch envOr(updateStrategyEnvVar, string(controller.UpdateStrategyOneWay)) {
	case string(controller.UpdateStrategyStrategic):
		return controller.UpdateStrategyStrategic
	default:
		return controller.UpdateStrategyOneWay
	}
}

func main() {
	var metricsAddr string
	var probeAddr string
	var functionsNamespace string
	var enableLeaderElection bool

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.StringVar(&functionsNamespace, "functions-namespace", envOr(functionsNamespaceEnvVar, defaultFunctionsNamespace),
		"The single namespace this operator reconciles OpenFaaSFunction objects in.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. Enabling this will ensure there is only one active controller manager.")

	opts := zap.Options{Development: true, Level: zapcore.DebugLevel}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	updateStrategy := updateStrategyFromEnv()
	setupLog.Info("starting manager", "functionsNamespace", functionsNamespace, "updateStrategy", updateStrategy)

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		MetricsBindAddress:     metricsAddr,
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "openfaas-function-operator.operato.rs",
		Namespace:              functionsNamespace,
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	reconciler := &controller.OpenFaaSFunctionReconciler{
		Client:              mgr.GetClient(),
		Scheme:              mgr.GetScheme(),
		FunctionsNamespace:  functionsNamespace,
		UpdateStrategy:      updateStrategy,
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "OpenFaaSFunction")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}
