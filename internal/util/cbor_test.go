/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package util

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPretty(t *testing.T) {
	type failure struct {
		Reason  int
		Message string
	}
	type response struct {
		Outcome string
		CRL     []byte   `json:",omitempty"`
		Failure *failure `json:",omitempty"`
	}

	out, err := RenderPretty(&response{
		Outcome: "failedEnrolment",
		CRL:     []byte{0xca, 0xfe},
		Failure: &failure{Reason: 3, Message: "unknown its"},
	})
	require.Nil(t, err)

	var parsed map[string]any
	require.Nil(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "failedEnrolment", parsed["Outcome"])
	assert.Equal(t, "h'cafe'", parsed["CRL"])
	assert.Equal(t, "unknown its", parsed["Failure"].(map[string]any)["Message"])
	assert.Contains(t, out, "\n  ")

	out, err = RenderPretty(&response{Outcome: "failedAuthorization"})
	require.Nil(t, err)
	assert.NotContains(t, out, "CRL")
}

func TestRenderCBORPretty_Tag(t *testing.T) {
	out, err := RenderCBORPretty(cbor.Tag{Number: 18, Content: []any{[]byte{0x01}}})
	require.Nil(t, err)
	assert.Contains(t, out, `"tag(18)"`)
	assert.Contains(t, out, `"h'01'"`)
}
