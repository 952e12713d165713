// Package config defines the format-agnostic pipeline model for the
// application, along with the Loader interface implemented by each concrete
// configuration format.
//
// The `config.Pipeline` is the single source of truth for the `dag`,
// `executor` and `runner` packages. Concrete loaders, such as HCL and YAML,
// are provided in separate packages and translate their syntax into this
// model before any validation happens.
package config
