package config

import (
	"reflect"
	"strings"
)

// mapstructureName makes validator report fields by their mapstructure tag.
func mapstructureName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// configKey turns a validator namespace such as "Config.bundle.workers"
// into the dotted key "bundle.workers".
func configKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
