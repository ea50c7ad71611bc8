// Package metadata holds the cloud placement of the gateway and derives
// the reported location and compute platform from it.
package metadata

import (
	"github.com/vyrodovalexey/apimanager/internal/config"
	"github.com/vyrodovalexey/apimanager/internal/servicecontrol"
)

// DefaultLocation is reported when no zone is known.
const DefaultLocation = "us-central1"

// Metadata is a snapshot of the placement data a metadata server would
// provide.
type Metadata struct {
	valid             bool
	zone              string
	gaeServerSoftware string
	kubeEnv           string
}

// New creates valid metadata.
func New(zone, gaeServerSoftware, kubeEnv string) *Metadata {
	return &Metadata{
		valid:             true,
		zone:              zone,
		gaeServerSoftware: gaeServerSoftware,
		kubeEnv:           kubeEnv,
	}
}

// FromConfig builds metadata from configuration. A missing cloud section
// yields metadata without valid data.
func FromConfig(cfg *config.CloudConfig) *Metadata {
	if cfg == nil {
		return &Metadata{}
	}
	return New(cfg.Zone, cfg.GAEServerSoftware, cfg.KubeEnv)
}

// HasValidData reports whether the snapshot was populated.
func (m *Metadata) HasValidData() bool { return m != nil && m.valid }

// Zone returns the zone, e.g. us-central1-a.
func (m *Metadata) Zone() string {
	if m == nil {
		return ""
	}
	return m.zone
}

// GAEServerSoftware returns the App Engine server software signal.
func (m *Metadata) GAEServerSoftware() string {
	if m == nil {
		return ""
	}
	return m.gaeServerSoftware
}

// KubeEnv returns the Kubernetes environment signal.
func (m *Metadata) KubeEnv() string {
	if m == nil {
		return ""
	}
	return m.kubeEnv
}

// Source is the read-only view of placement data.
type Source interface {
	HasValidData() bool
	Zone() string
	GAEServerSoftware() string
	KubeEnv() string
}

// ClassifyPlatform decides the compute platform. The App Engine signal
// takes precedence over the Kubernetes one.
func ClassifyPlatform(valid, appEngine, kube bool) servicecontrol.ComputePlatform {
	switch {
	case !valid:
		return servicecontrol.PlatformUnknown
	case appEngine:
		return servicecontrol.PlatformGAE
	case kube:
		return servicecontrol.PlatformGKE
	default:
		return servicecontrol.PlatformGCE
	}
}

// Platform classifies md. Nil metadata is unknown.
func Platform(md Source) servicecontrol.ComputePlatform {
	if isNil(md) {
		return servicecontrol.PlatformUnknown
	}
	return ClassifyPlatform(md.HasValidData(), md.GAEServerSoftware() != "", md.KubeEnv() != "")
}

// Location returns the zone of md when it is valid and set, otherwise
// DefaultLocation.
func Location(md Source) string {
	if isNil(md) || !md.HasValidData() || md.Zone() == "" {
		return DefaultLocation
	}
	return md.Zone()
}

func isNil(md Source) bool {
	if md == nil {
		return true
	}
	m, ok := md.(*Metadata)
	return ok && m == nil
}
