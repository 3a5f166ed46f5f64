/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package util

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// RenderPretty renders a record as indented JSON. The record goes through
// its CBOR data model first, so byte strings come out in diagnostic hex
// notation (h'0a0b') instead of base64.
func RenderPretty(v any) (string, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := cbor.Unmarshal(data, &generic); err != nil {
		return "", err
	}
	return RenderCBORPretty(generic)
}

// RenderCBORPretty renders a value decoded from CBOR into any.
func RenderCBORPretty(generic any) (string, error) {
	out, err := json.MarshalIndent(toJSON(generic), "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func toJSON(value any) any {
	switch v := value.(type) {
	case []byte:
		return hexString(v)
	case []any:
		items := make([]any, 0, len(v))
		for _, item := range v {
			items = append(items, toJSON(item))
		}
		return items
	case map[any]any:
		fields := make(map[string]any, len(v))
		for k, item := range v {
			fields[keyString(k)] = toJSON(item)
		}
		return fields
	case cbor.Tag:
		return map[string]any{fmt.Sprintf("tag(%d)", v.Number): toJSON(v.Content)}
	default:
		return v
	}
}

func keyString(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case []byte:
		return hexString(k)
	default:
		return fmt.Sprint(k)
	}
}

func hexString(b []byte) string {
	return fmt.Sprintf("h'%x'", b)
}
