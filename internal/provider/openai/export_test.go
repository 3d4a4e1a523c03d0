// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Solrock Contributors

package openai

// ConvertMessages exposes convertMessages for white-box testing.
var ConvertMessages = convertMessages

// BuildParams exposes buildParams for white-box testing.
var BuildParams = buildParams
