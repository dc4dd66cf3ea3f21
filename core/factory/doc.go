// Package factory builds pluggable components from configuration. A component
// is described by a type string and a map of raw settings; the factory for
// that type decodes the settings into its own struct.
//
//	sources := factory.NewRegistry[source.Source]()
//	_ = sources.Register("file", newFileSource)
//	src, err := sources.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"dir": "./modules"}})
package factory
