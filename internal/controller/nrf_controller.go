package controller

import (
	"context"
	"errors"
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
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"

	sdcorev1alpha1 "github.com/sdcore/nrf-operator/api/v1alpha1"
	"github.com/sdcore/nrf-operator/internal/common"
	"github.com/sdcore/nrf-operator/internal/images"
	"github.com/sdcore/nrf-operator/internal/metrics"
	"github.com/sdcore/nrf-operator/internal/nrf"
	"github.com/sdcore/nrf-operator/internal/pebble"
	"github.com/sdcore/nrf-operator/internal/pki"
	"github.com/sdcore/nrf-operator/internal/relation"
)

// unreachableRetry is how long we wait before redelivering a signal that
// was deferred because the workload container was unreachable.
const unreachableRetry = 10 * time.Second

// NRFReconciler reconciles an NRF object.
type NRFReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// Leader gates all mutating work. The manager's leader election
	// guarantees a single active instance; tests flip this off to
	// exercise the non-leader path.
	Leader bool

	// WorkloadFor returns the workload collaborator for an instance.
	// Nil selects the Pebble client against the instance's service
	// address; tests inject fakes.
	WorkloadFor func(instance *sdcorev1alpha1.NRF) (nrf.Workload, error)
}

// +kubebuilder:rbac:groups=sdcore.io,resources=nrfs,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=sdcore.io,resources=nrfs/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=sdcore.io,resources=nrfs/finalizers,verbs=update
// +kubebuilder:rbac:groups=core,resources=configmaps;services,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=apps,resources=statefulsets,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=gateway.networking.k8s.io,resources=httproutes,verbs=get;list;watch;create;update;patch;delete

// Reconcile handles the reconciliation loop for NRF resources.
func (r *NRFReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	instance := &sdcorev1alpha1.NRF{}
	if err := r.Get(ctx, req.NamespacedName, instance); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	settings := settingsFor(instance)
	core, err := r.coreFor(ctx, instance, settings)
	if err != nil {
		return ctrl.Result{}, err
	}

	// Handle deletion: TLS artifacts are removed from the workload
	// before the finalizer is dropped. An unreachable container defers
	// the cleanup rather than dropping it.
	if !instance.DeletionTimestamp.IsZero() {
		if common.HasFinalizer(instance, common.FinalizerName) {
			res, err := core.Handle(ctx, nrf.Signal{Kind: nrf.SignalCertificatesRelationBroken})
			if err != nil {
				return ctrl.Result{}, err
			}
			if res.Outcome == nrf.OutcomeDeferred {
				return ctrl.Result{RequeueAfter: unreachableRetry}, nil
			}
			common.RemoveFinalizer(instance, common.FinalizerName)
			if err := r.Update(ctx, instance); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{}, nil
	}

	// Ensure finalizer
	if !common.HasFinalizer(instance, common.FinalizerName) {
		common.AddFinalizer(instance, common.FinalizerName)
		if err := r.Update(ctx, instance); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	// Invalid configuration blocks, never crashes.
	if err := settings.Validate(); err != nil {
		var invalid *nrf.InvalidConfigError
		if errors.As(err, &invalid) {
			return ctrl.Result{}, r.updateStatus(ctx, instance, nrf.Status{
				Class:   nrf.StatusBlocked,
				Message: invalid.Error(),
			}, "", "")
		}
		return ctrl.Result{}, err
	}

	// Ensure the workload resources exist.
	image := images.ImageOrDefault(instance.Spec.Image, images.DefaultNRF)
	if err := r.ensureService(ctx, instance, settings); err != nil {
		return ctrl.Result{}, err
	}
	if err := r.ensureStatefulSet(ctx, instance, settings, image); err != nil {
		return ctrl.Result{}, err
	}
	if instance.Spec.GatewayRef != nil {
		if err := common.EnsureHTTPRoute(ctx, r.Client, common.HTTPRouteParams{
			Name:             instance.Name,
			Namespace:        instance.Namespace,
			Hostname:         instance.Spec.PublicHostname,
			ServiceName:      instance.Name,
			ServicePort:      int32(settings.SBIPort),
			GatewayName:      instance.Spec.GatewayRef.Name,
			GatewayNamespace: instance.Spec.GatewayRef.Namespace,
			ListenerName:     instance.Spec.GatewayRef.ListenerName,
		}, instance); err != nil {
			return ctrl.Result{}, err
		}
	}

	// A removed certificates relation tears down the TLS artifacts.
	relations := r.relationStore(instance)
	certPresent, err := relations.Present(ctx, nrf.RelationCertificates)
	if err != nil {
		return ctrl.Result{}, err
	}
	if !certPresent {
		res, err := core.Handle(ctx, nrf.Signal{Kind: nrf.SignalCertificatesRelationBroken})
		if err != nil {
			return ctrl.Result{}, err
		}
		if res.Outcome == nrf.OutcomeDeferred {
			return ctrl.Result{RequeueAfter: unreachableRetry}, nil
		}
	}

	// Publish into fiveg-nrf relations that have not seen our URL yet,
	// then run the convergence pass (which re-broadcasts on success).
	if err := r.publishNewRelations(ctx, core, relations); err != nil {
		return ctrl.Result{}, err
	}
	res, err := core.Handle(ctx, nrf.Signal{Kind: nrf.SignalConverge})
	if err != nil {
		return ctrl.Result{}, err
	}
	if res.Outcome == nrf.OutcomeDeferred {
		return ctrl.Result{RequeueAfter: unreachableRetry}, nil
	}
	logger.V(1).Info("Reconciled", "outcome", string(res.Outcome), "reason", res.Reason)

	status := core.CollectStatus(ctx)
	url := ""
	if status.Class == nrf.StatusActive {
		url = settings.URL()
	}
	return ctrl.Result{}, r.updateStatus(ctx, instance, status, core.WorkloadVersion(ctx), url)
}

// publishNewRelations handles the "relation joined" signal for every
// fiveg-nrf relation whose databag does not carry our URL yet.
func (r *NRFReconciler) publishNewRelations(ctx context.Context, core *nrf.Reconciler, relations nrf.RelationStore) error {
	ids, err := relations.IDs(ctx, nrf.RelationFivegNRF)
	if err != nil {
		return err
	}
	for _, id := range ids {
		data, err := relations.Read(ctx, id)
		if err != nil {
			return err
		}
		if data["url"] != "" {
			continue
		}
		if _, err := core.Handle(ctx, nrf.Signal{Kind: nrf.SignalNRFRelationJoined, RelationID: id}); err != nil {
			return err
		}
	}
	return nil
}

func (r *NRFReconciler) updateStatus(ctx context.Context, instance *sdcorev1alpha1.NRF, status nrf.Status, workloadVersion, url string) error {
	condStatus := metav1.ConditionFalse
	reason := string(status.Class)
	message := status.Message
	if status.Class == nrf.StatusActive {
		condStatus = metav1.ConditionTrue
		reason = "Ready"
		message = "NRF is ready"
	}
	instance.Status.Conditions = common.SetCondition(
		instance.Status.Conditions, "Ready",
		condStatus, reason, message,
		instance.Generation,
	)
	instance.Status.State = string(status.Class)
	instance.Status.Message = status.Message
	instance.Status.URL = url
	instance.Status.WorkloadVersion = workloadVersion
	instance.Status.ObservedGeneration = instance.Generation
	return r.Status().Update(ctx, instance)
}

// coreFor assembles the reconciliation core for one instance.
func (r *NRFReconciler) coreFor(ctx context.Context, instance *sdcorev1alpha1.NRF, settings nrf.Settings) (*nrf.Reconciler, error) {
	logger := log.FromContext(ctx)

	workload, err := r.workloadFor(instance)
	if err != nil {
		return nil, err
	}
	relations := r.relationStore(instance)

	var lifecycle nrf.CertificateLifecycle
	switch instance.Spec.TLS.Mode {
	case sdcorev1alpha1.CertificateModeManual:
		lifecycle = nrf.ManualLifecycle{
			Workload:  workload,
			Authority: &pki.RelationAuthority{Relations: relations},
			Settings:  settings,
			Log:       logger,
			Observer:  metrics.Observer{},
		}
	default:
		lifecycle = nrf.DelegatedLifecycle{
			Workload: workload,
			Source:   &pki.RelationSource{Relations: relations},
			Settings: settings,
			Log:      logger,
			Observer: metrics.Observer{},
		}
	}

	serviceAddress := fmt.Sprintf("%s.%s.svc", instance.Name, instance.Namespace)
	return &nrf.Reconciler{
		Workload:     workload,
		Relations:    relations,
		Certificates: lifecycle,
		Settings:     settings,
		Leader:       r.Leader,
		Log:          logger,
		Observer:     metrics.Observer{},
		HostAddress:  func() string { return serviceAddress },
	}, nil
}

func (r *NRFReconciler) workloadFor(instance *sdcorev1alpha1.NRF) (nrf.Workload, error) {
	if r.WorkloadFor != nil {
		return r.WorkloadFor(instance)
	}
	port := instance.Spec.PebblePort
	if port == 0 {
		port = defaultPebblePort
	}
	baseURL := fmt.Sprintf("http://%s.%s.svc:%d", instance.Name, instance.Namespace, port)
	return pebble.NewClient(baseURL)
}

func (r *NRFReconciler) relationStore(instance *sdcorev1alpha1.NRF) *relation.ConfigMapStore {
	return &relation.ConfigMapStore{
		Client:    r.Client,
		Namespace: instance.Namespace,
		App:       instance.Name,
	}
}

func settingsFor(instance *sdcorev1alpha1.NRF) nrf.Settings {
	settings := nrf.DefaultSettings(instance.Name)
	if instance.Spec.LogLevel != "" {
		settings.LogLevel = string(instance.Spec.LogLevel)
	}
	if instance.Spec.SBI.Port != 0 {
		settings.SBIPort = int(instance.Spec.SBI.Port)
	}
	if instance.Spec.SBI.Scheme != "" {
		settings.Scheme = instance.Spec.SBI.Scheme
	}
	if instance.Spec.TLS.CommonName != "" {
		settings.CommonName = instance.Spec.TLS.CommonName
	}
	// The manual certificate generation predates the sdcore-config
	// relation and runs without the webui dependency.
	if instance.Spec.TLS.Mode == sdcorev1alpha1.CertificateModeManual {
		settings.WebuiRequired = false
	}
	return settings
}

const defaultPebblePort = 8484

func (r *NRFReconciler) ensureService(ctx context.Context, instance *sdcorev1alpha1.NRF, settings nrf.Settings) error {
	svc := &corev1.Service{}
	err := r.Get(ctx, types.NamespacedName{Name: instance.Name, Namespace: instance.Namespace}, svc)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}

	svc = &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      instance.Name,
			Namespace: instance.Namespace,
			Labels:    labelsForNRF(instance.Name),
		},
		Spec: corev1.ServiceSpec{
			Selector: labelsForNRF(instance.Name),
			Ports: []corev1.ServicePort{
				{Name: "sbi", Port: int32(settings.SBIPort), Protocol: corev1.ProtocolTCP},
				{Name: "metrics", Port: nrf.DefaultPrometheusPort, Protocol: corev1.ProtocolTCP},
			},
		},
	}
	_ = controllerutil.SetOwnerReference(instance, svc, r.Scheme)
	return r.Create(ctx, svc)
}

func (r *NRFReconciler) ensureStatefulSet(ctx context.Context, instance *sdcorev1alpha1.NRF, settings nrf.Settings, image string) error {
	sts := &appsv1.StatefulSet{}
	err := r.Get(ctx, types.NamespacedName{Name: instance.Name, Namespace: instance.Namespace}, sts)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return err
	}

	// Scaling is not supported: exactly one replica.
	replicas := int32(1)
	pebblePort := instance.Spec.PebblePort
	if pebblePort == 0 {
		pebblePort = defaultPebblePort
	}

	sts = &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      instance.Name,
			Namespace: instance.Namespace,
			Labels:    labelsForNRF(instance.Name),
		},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: instance.Name,
			Replicas:    &replicas,
			Selector: &metav1.LabelSelector{
				MatchLabels: labelsForNRF(instance.Name),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: labelsForNRF(instance.Name),
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "nrf",
							Image: image,
							Ports: []corev1.ContainerPort{
								{ContainerPort: int32(settings.SBIPort), Name: "sbi"},
								{ContainerPort: nrf.DefaultPrometheusPort, Name: "metrics"},
								{ContainerPort: pebblePort, Name: "pebble"},
							},
							Resources: instance.Spec.Resources,
							VolumeMounts: []corev1.VolumeMount{
								{Name: "config", MountPath: nrf.ConfigDir},
								{Name: "certs", MountPath: nrf.CertsDir},
							},
						},
					},
					Volumes: []corev1.Volume{
						{Name: "config", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}},
						{Name: "certs", VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}}},
					},
				},
			},
		},
	}
	_ = controllerutil.SetOwnerReference(instance, sts, r.Scheme)
	return r.Create(ctx, sts)
}

// SetupWithManager sets up the controller with the Manager. Relation
// ConfigMaps are watched so that databag changes redeliver a
// reconciliation to the application they belong to.
func (r *NRFReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&sdcorev1alpha1.NRF{}).
		Owns(&appsv1.StatefulSet{}).
		Owns(&corev1.Service{}).
		Watches(&corev1.ConfigMap{}, handler.EnqueueRequestsFromMapFunc(r.relationToNRF)).
		Complete(r)
}

// relationToNRF maps a relation ConfigMap event to the NRF it belongs to.
func (r *NRFReconciler) relationToNRF(ctx context.Context, obj client.Object) []ctrl.Request {
	labels := obj.GetLabels()
	if labels[relation.KindLabel] == "" || labels[relation.AppLabel] == "" {
		return nil
	}
	return []ctrl.Request{{
		NamespacedName: types.NamespacedName{
			Name:      labels[relation.AppLabel],
			Namespace: obj.GetNamespace(),
		},
	}}
}

func labelsForNRF(name string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":       "nrf",
		"app.kubernetes.io/instance":   name,
		"app.kubernetes.io/managed-by": "nrf-operator",
	}
}
