package model

import (
	"testing"
	"time"

	"github.com/matheus3301/beazap/internal/backend"
	"github.com/stretchr/testify/assert"
)

func TestFlashExpires(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	f := &Flash{now: func() time.Time { return now }}

	msg, _ := f.Get()
	assert.Empty(t, msg)

	f.Error("send failed", 5*time.Second)
	msg, level := f.Get()
	assert.Equal(t, "send failed", msg)
	assert.Equal(t, LevelError, level)

	now = now.Add(6 * time.Second)
	msg, _ = f.Get()
	assert.Empty(t, msg)
}

func TestFlashClear(t *testing.T) {
	f := &Flash{}
	f.Info("saved", time.Minute)
	f.Clear()
	msg, _ := f.Get()
	assert.Empty(t, msg)
}

func TestFilterLabels(t *testing.T) {
	var labels []string
	for _, s := range Filters {
		labels = append(labels, FilterLabel(s))
	}
	assert.Equal(t, []string{"all", "open", "resolved", "abandoned"}, labels)
	assert.Equal(t, "open", FilterLabel(backend.StatusOpen))
}
