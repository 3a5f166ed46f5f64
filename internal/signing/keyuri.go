/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package signing

import (
	"fmt"
	"net/url"
	"strings"
)

// PKCS11Config selects the token holding the station key.
type PKCS11Config struct {
	ModulePath string
	TokenLabel string
	PIN        string
}

// ParseKeyURI extracts the object label from a reference such as
// "pkcs11:object=test-key;type=private".
func ParseKeyURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "pkcs11:")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyURI, uri)
	}
	var label, kind string
	for _, attr := range strings.Split(rest, ";") {
		name, value, found := strings.Cut(attr, "=")
		if !found {
			continue
		}
		value, err := url.PathUnescape(value)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidKeyURI, err)
		}
		switch name {
		case "object":
			label = value
		case "type":
			kind = value
		}
	}
	if label == "" || (kind != "" && kind != "private") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKeyURI, uri)
	}
	return label, nil
}

// KeyURI is the inverse of ParseKeyURI.
func KeyURI(label string) string {
	return "pkcs11:object=" + url.PathEscape(label) + ";type=private"
}
