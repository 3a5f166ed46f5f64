/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.RecordLookup("memory")
	m.RecordLookup("memory")
	m.RecordSent(nil)
	m.RecordSent(errors.New("boom"))
	m.RecordReceived("verified")
	m.RecordExchange("enrollment", "successfulEnrolment")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResolverLookups.WithLabelValues("memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues("verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exchanges.WithLabelValues("enrollment", "successfulEnrolment")))

	// two independent instances must not collide on registration
	assert.NotPanics(t, func() { New() })
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLookup("disk")
		m.RecordSent(nil)
		m.RecordReceived("rejected")
		m.RecordExchange("authorization", "failedAuthorization")
	})
}
