package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitializeIsSingleton(t *testing.T) {
	assert.Same(t, Initialize(), Get())
}

func TestRecordView(t *testing.T) {
	m := Get()
	m.ViewsRecordedTotal.Reset()

	RecordView("first_view")
	RecordView("first_view")
	RecordView("repeat_view")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ViewsRecordedTotal.WithLabelValues("first_view")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ViewsRecordedTotal.WithLabelValues("repeat_view")))
}

func TestRecordRedactionAndToggle(t *testing.T) {
	m := Get()
	m.ViewRedactionsTotal.Reset()
	m.PrivacyTogglesTotal.Reset()

	RecordRedaction("post")
	RecordPrivacyToggle(true)
	RecordPrivacyToggle(false)
	RecordPrivacyToggle(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ViewRedactionsTotal.WithLabelValues("post")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PrivacyTogglesTotal.WithLabelValues("hidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PrivacyTogglesTotal.WithLabelValues("visible")))
}

func TestRecordRepairRun(t *testing.T) {
	m := Get()
	m.AggregateRepairsTotal.Reset()

	RecordRepairRun(2, 1, 10, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AggregateRepairsTotal.WithLabelValues("fixed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AggregateRepairsTotal.WithLabelValues("failed")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.AggregateRepairsTotal.WithLabelValues("consistent")))
}
