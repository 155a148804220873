package objtrack

import (
	"github.com/wippyai/objtrack/config"
	"github.com/wippyai/objtrack/driver"
	"github.com/wippyai/objtrack/layer"
)

// Version of the objtrack module.
const Version = "0.3.0"

// Open builds a layer over resolver. Settings are read from path when it is
// non-empty, otherwise from the defaults and the environment. The layer
// logger is built from the settings unless opts supply one.
func Open(path string, resolver driver.Resolver, opts ...layer.Option) (*layer.Layer, error) {
	var (
		settings *config.Settings
		err      error
	)
	if path != "" {
		settings, err = config.Load(path)
	} else {
		settings, err = config.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	// Caller options come last so an explicit WithLogger wins.
	log, err := settings.BuildLogger()
	if err != nil {
		return nil, err
	}
	opts = append([]layer.Option{layer.WithLogger(log)}, opts...)
	return layer.New(settings, resolver, opts...)
}
