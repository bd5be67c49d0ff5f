package orchestrator

import (
	"slices"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/configbag"
	"github.com/jonwraymond/callrt/interceptor"
	"github.com/jonwraymond/callrt/resilience"
)

// Layer names of the built-in plugins.
const (
	LayerDefaults            = "defaults"
	LayerClient              = "client"
	LayerStandardTokenBucket = "standard token bucket"
	LayerTimeSource          = "time source"
	LayerSleep               = "sleep"
	LayerCredentials         = "credentials"
)

// RuntimePlugin contributes a frozen config layer and, optionally,
// interceptors to a client or to a single call.
//
// Contract:
//   - Concurrency: Config and Interceptors may be called concurrently and
//     must return values that are safe to share.
//   - Ownership: the returned layer is never mutated by the client.
type RuntimePlugin interface {
	Name() string
	Config() *configbag.FrozenLayer
	Interceptors() []interceptor.Interceptor
}

// Plugin is a RuntimePlugin built from fixed values.
type Plugin struct {
	name         string
	layer        *configbag.FrozenLayer
	interceptors []interceptor.Interceptor
}

// NewPlugin freezes layer into a plugin. A nil layer contributes nothing to
// the bag. The plugin's interceptors run in the scope it is registered in,
// after that scope's directly registered interceptors.
func NewPlugin(name string, layer *configbag.Layer, interceptors ...interceptor.Interceptor) *Plugin {
	p := &Plugin{name: name, interceptors: slices.Clone(interceptors)}
	if layer != nil {
		p.layer = layer.Freeze()
	}
	return p
}

// Name returns the plugin name.
func (p *Plugin) Name() string { return p.name }

// Config returns the plugin's frozen layer.
func (p *Plugin) Config() *configbag.FrozenLayer { return p.layer }

// Interceptors returns the plugin's interceptors.
func (p *Plugin) Interceptors() []interceptor.Interceptor { return slices.Clone(p.interceptors) }

// StandardTokenBucketPlugin installs bucket as the retry token bucket.
func StandardTokenBucketPlugin(bucket *resilience.TokenBucket) *Plugin {
	l := configbag.NewLayer(LayerStandardTokenBucket)
	configbag.Put(l, bucket)
	return NewPlugin(LayerStandardTokenBucket, l)
}

// TimeSourcePlugin installs ts as the time source used for signing.
func TimeSourcePlugin(ts clock.TimeSource) *Plugin {
	l := configbag.NewLayer(LayerTimeSource)
	configbag.Put(l, clock.NewSharedTimeSource(ts))
	return NewPlugin(LayerTimeSource, l)
}

// SleepPlugin installs s as the sleep used for retry backoff.
func SleepPlugin(s clock.AsyncSleep) *Plugin {
	l := configbag.NewLayer(LayerSleep)
	configbag.Put(l, clock.NewSharedAsyncSleep(s))
	return NewPlugin(LayerSleep, l)
}

// CredentialsPlugin installs p as the credentials provider.
func CredentialsPlugin(p auth.CredentialsProvider) *Plugin {
	l := configbag.NewLayer(LayerCredentials)
	configbag.Put(l, p)
	return NewPlugin(LayerCredentials, l)
}

var _ RuntimePlugin = (*Plugin)(nil)
