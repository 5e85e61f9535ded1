// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors holds the error types shared by the rover packages.
package errors

import "fmt"

// ConfigError reports hardware setup that cannot work, such as
// an empty LED strip or inverted duty limits. It is returned at
// construction time and programs treat it as fatal.
type ConfigError struct {
	Component string
	Field     string
	Reason    string
}

func (err ConfigError) Error() string {
	if len(err.Field) == 0 {
		return fmt.Sprintf("%s: invalid configuration: %s", err.Component, err.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", err.Component, err.Field, err.Reason)
}

// Invalid is shorthand for building a ConfigError.
func Invalid(component, field, format string, args ...interface{}) error {
	return ConfigError{Component: component, Field: field, Reason: fmt.Sprintf(format, args...)}
}
