package ui_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/mkube/mkube-console/internal/ui"
)

func TestHumanBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{8589934592, "8.0 GB"},
		{1099511627776, "1.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ui.HumanBytes(tt.give), "HumanBytes(%d)", tt.give)
	}
}

func TestHumanTime(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name string
		give time.Time
		want string
	}{
		{"zero time", time.Time{}, "never"},
		{"seconds ago", now.Add(-30 * time.Second), "just now"},
		{"one minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"minutes", now.Add(-10 * time.Minute), "10 minutes ago"},
		{"hours", now.Add(-3 * time.Hour), "3 hours ago"},
		{"days", now.Add(-48 * time.Hour), "2 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ui.HumanTime(tt.give))
		})
	}
}

func TestHumanDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give int64
		want string
	}{
		{45, "45s"},
		{200, "3m20s"},
		{7500, "2h5m"},
		{385200, "4d11h"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ui.HumanDuration(tt.give), "HumanDuration(%d)", tt.give)
	}
}

func TestAge(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ui.Age(nil))
	assert.Empty(t, ui.Age(&metav1.Time{}))

	started := metav1.NewTime(time.Now().Add(-30 * time.Second))
	assert.Equal(t, "30s", ui.Age(&started))
}
