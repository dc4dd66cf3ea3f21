// Package prediction maps a route identifier to the ordered list of features
// the user is likely to need next. Tables are static: they are built once at
// startup, from configuration or a JSON/YAML file, and only read afterwards.
package prediction
