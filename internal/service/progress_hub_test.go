package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressHub_PublishAndClose(t *testing.T) {
	hub := NewProgressHub()
	ch, cancel := hub.Subscribe("u1:up1")
	defer cancel()
	other, cancelOther := hub.Subscribe("u2:up2")
	defer cancelOther()

	hub.Publish("u1:up1", 5)
	hub.Publish("u1:up1", 50)
	hub.Close("u1:up1")

	var got []int
	for p := range ch {
		got = append(got, p)
	}
	assert.Equal(t, []int{5, 50}, got)

	select {
	case p := <-other:
		t.Fatalf("unexpected value %d for another upload", p)
	default:
	}
}

func TestProgressHub_CancelTwice(t *testing.T) {
	hub := NewProgressHub()
	_, cancel := hub.Subscribe("k")
	cancel()
	cancel()
	hub.Close("k")
}

func TestProgressTracker_DropsRegressions(t *testing.T) {
	var got []int
	tr := newProgressTracker(func(p int) { got = append(got, p) }, nil)
	for _, p := range []int{5, 35, 20, 35, 65, 95, 100, 100} {
		tr.report(p)
	}
	assert.Equal(t, []int{5, 35, 65, 95, 100}, got)
	assert.Equal(t, 100, tr.current())
}
