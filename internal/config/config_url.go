// DHIS2 User Audit - Duplicate Account and Login Activity Auditing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dhis2-user-audit

package config

import (
	"fmt"
	"net/url"
)

// validateHTTPURL validates that a URL is an http(s) base URL.
// DHIS2 is commonly deployed under a context path (https://host/dhis), so a
// path is allowed; query parameters and fragments are not.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	if parsedURL.Fragment != "" {
		return fmt.Errorf("%s should not contain a fragment, remove: #%s", fieldName, parsedURL.Fragment)
	}

	return nil
}
