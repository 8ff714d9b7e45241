package telemetry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"

	"interview-engine/pkg/models"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func testPublisher(t *testing.T) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	p := NewPublisher(mr.Addr(), time.Minute, testLog())
	t.Cleanup(func() { p.Close() })
	return p, mr
}

func TestPublishMetrics(t *testing.T) {
	p, mr := testPublisher(t)

	m := models.FaceMetrics{Emotion: models.EmotionHappy, Confidence: 0.62}
	p.PublishMetrics(context.Background(), "sess-1", m)

	raw, err := mr.Get("session:sess-1:metrics")
	if err != nil {
		t.Fatalf("metrics key missing: %v", err)
	}
	var got models.FaceMetrics
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Emotion != models.EmotionHappy || got.Confidence != 0.62 {
		t.Fatalf("metrics mismatch: %+v", got)
	}
	if mr.TTL("session:sess-1:metrics") <= 0 {
		t.Fatal("metrics key has no expiry")
	}
}

func TestTimelineAppendsAndTrims(t *testing.T) {
	p, mr := testPublisher(t)

	for i := 0; i < 250; i++ {
		p.PublishMetrics(context.Background(), "sess-1", models.FaceMetrics{
			Emotion:    models.EmotionNeutral,
			Confidence: float64(i) / 250,
		})
	}

	entries, err := mr.List("session:sess-1:timeline")
	if err != nil {
		t.Fatalf("timeline missing: %v", err)
	}
	if len(entries) != 200 {
		t.Fatalf("timeline not trimmed: %d entries", len(entries))
	}

	var last models.FaceMetrics
	if err := json.Unmarshal([]byte(entries[len(entries)-1]), &last); err != nil {
		t.Fatalf("unmarshal tail: %v", err)
	}
	if last.Confidence != 249.0/250 {
		t.Fatalf("tail is not the newest sample: %+v", last)
	}
}

func TestPublishPhase(t *testing.T) {
	p, mr := testPublisher(t)

	p.PublishPhase(context.Background(), "sess-1", models.PhaseRecording)

	got, err := mr.Get("session:sess-1:phase")
	if err != nil {
		t.Fatalf("phase key missing: %v", err)
	}
	if got != string(models.PhaseRecording) {
		t.Fatalf("phase = %q", got)
	}
}

func TestNilPublisherDropsEverything(t *testing.T) {
	var p *Publisher

	p.PublishMetrics(context.Background(), "sess-1", models.FaceMetrics{})
	p.PublishPhase(context.Background(), "sess-1", models.PhaseIdle)
	if err := p.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}

	if NewPublisher("", time.Minute, testLog()) != nil {
		t.Fatal("empty addr should yield a nil publisher")
	}
}
