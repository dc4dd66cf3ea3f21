package source

import (
	"github.com/kilianp07/lazyload/core/factory"
	coresource "github.com/kilianp07/lazyload/core/source"
)

// init registers the built-in sources.
func init() {
	_ = coresource.Register("http", func(conf map[string]any) (coresource.Source, error) {
		var c HTTPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPSource(c)
	})
	_ = coresource.Register("file", func(conf map[string]any) (coresource.Source, error) {
		var c FileConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewFileSource(c)
	})
	_ = coresource.Register("object", func(conf map[string]any) (coresource.Source, error) {
		var c ObjectConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewObjectSource(c)
	})
	_ = coresource.Register("static", func(conf map[string]any) (coresource.Source, error) {
		var c StaticConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewStaticSource(c), nil
	})
}
