package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// CertificateMode selects the certificate lifecycle strategy.
// +kubebuilder:validation:Enum=manual;delegated
type CertificateMode string

const (
	// CertificateModeManual keeps key/CSR bookkeeping in the operator:
	// it generates the private key and signing request itself and matches
	// issued certificates against the stored request.
	CertificateModeManual CertificateMode = "manual"

	// CertificateModeDelegated expects the certificates databag to carry
	// an already-issued certificate and private key pair.
	CertificateModeDelegated CertificateMode = "delegated"
)

// LogLevel is the workload log level.
// +kubebuilder:validation:Enum=debug;info;warn;error;fatal;panic
type LogLevel string

// SBIConfig defines the service-based-interface settings of the NRF.
type SBIConfig struct {
	// Port is the SBI listen port.
	// +kubebuilder:default=29510
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	// +optional
	Port int32 `json:"port,omitempty"`

	// Scheme is the SBI URI scheme.
	// +kubebuilder:validation:Enum=http;https
	// +kubebuilder:default=https
	// +optional
	Scheme string `json:"scheme,omitempty"`
}

// TLSSpec defines how the NRF obtains its TLS material.
type TLSSpec struct {
	// Mode selects the certificate lifecycle strategy.
	// +kubebuilder:default=delegated
	// +optional
	Mode CertificateMode `json:"mode,omitempty"`

	// CommonName is the subject common name requested for the NRF
	// certificate. It is also used as the single DNS SAN.
	// +kubebuilder:default=nrf.sdcore
	// +optional
	CommonName string `json:"commonName,omitempty"`
}

// GatewayRef references a Gateway API Gateway for external SBI routing.
type GatewayRef struct {
	Name string `json:"name"`

	// +optional
	Namespace string `json:"namespace,omitempty"`

	// +optional
	ListenerName string `json:"listenerName,omitempty"`
}

// NRFSpec defines the desired state of the NRF deployment.
type NRFSpec struct {
	// Image is the workload container image. If empty, the operator
	// default is used.
	// +optional
	Image string `json:"image,omitempty"`

	// Resources defines compute resource requirements for the workload pod.
	// +optional
	Resources corev1.ResourceRequirements `json:"resources,omitempty"`

	// LogLevel for the NRF workload.
	// +kubebuilder:default=info
	// +optional
	LogLevel LogLevel `json:"logLevel,omitempty"`

	// SBI configures the service-based interface.
	// +optional
	SBI SBIConfig `json:"sbi,omitempty"`

	// TLS configures the certificate lifecycle.
	// +optional
	TLS TLSSpec `json:"tls,omitempty"`

	// PebblePort is the TCP port the workload's Pebble daemon listens on.
	// +kubebuilder:default=8484
	// +optional
	PebblePort int32 `json:"pebblePort,omitempty"`

	// GatewayRef optionally exposes the SBI endpoint through a Gateway.
	// +optional
	GatewayRef *GatewayRef `json:"gatewayRef,omitempty"`

	// PublicHostname is the hostname used when exposing the SBI endpoint
	// through a Gateway.
	// +optional
	PublicHostname string `json:"publicHostname,omitempty"`
}

// NRFStatus defines the observed state of NRF.
type NRFStatus struct {
	// Conditions represent the latest available observations.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// ObservedGeneration is the last generation reconciled.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// State is the coarse classification: Blocked, Waiting or Active.
	// +optional
	State string `json:"state,omitempty"`

	// Message explains the current state.
	// +optional
	Message string `json:"message,omitempty"`

	// URL is the NRF's published connection URL, set once the service
	// is running.
	// +optional
	URL string `json:"url,omitempty"`

	// WorkloadVersion is read from the workload's version file.
	// Informational only.
	// +optional
	WorkloadVersion string `json:"workloadVersion,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="State",type=string,JSONPath=`.status.state`
// +kubebuilder:printcolumn:name="URL",type=string,JSONPath=`.status.url`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// NRF is the Schema for the nrfs API.
type NRF struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   NRFSpec   `json:"spec,omitempty"`
	Status NRFStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// NRFList contains a list of NRF.
type NRFList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []NRF `json:"items"`
}

func init() {
	SchemeBuilder.Register(&NRF{}, &NRFList{})
}
