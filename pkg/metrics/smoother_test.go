package metrics

import (
	"math"
	"testing"

	"interview-engine/pkg/models"
)

func detection(expr map[models.Emotion]float64) *models.Detection {
	return &models.Detection{
		Box:         models.BoundingBox{X: 10, Y: 20, Width: 100, Height: 120},
		Expressions: expr,
	}
}

func TestFirstFrameConfidence(t *testing.T) {
	s := NewSmoother(0.7)

	m := s.Apply(detection(map[models.Emotion]float64{
		models.EmotionHappy:   0.6,
		models.EmotionNeutral: 0.3,
		models.EmotionSad:     0.1,
	}))

	if m.Emotion != models.EmotionHappy {
		t.Fatalf("expected happy, got %s", m.Emotion)
	}
	want := 0.7 * (0.6 / (0.6 + 0.3))
	if math.Abs(m.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %.6f, got %.6f", want, m.Confidence)
	}
}

func TestSmoothingBlendsPrior(t *testing.T) {
	s := NewSmoother(0.7)

	s.Apply(detection(map[models.Emotion]float64{
		models.EmotionHappy:   0.6,
		models.EmotionNeutral: 0.3,
	}))
	first := s.Current().Confidence

	m := s.Apply(detection(map[models.Emotion]float64{
		models.EmotionHappy:   0.8,
		models.EmotionNeutral: 0.2,
	}))

	want := 0.7*(0.8/(0.8+0.2)) + 0.3*first
	if math.Abs(m.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %.6f, got %.6f", want, m.Confidence)
	}
}

func TestConfidenceStaysInRange(t *testing.T) {
	s := NewSmoother(0.7)

	distributions := []map[models.Emotion]float64{
		{models.EmotionHappy: 1.0},
		{models.EmotionHappy: 1.0, models.EmotionSad: 0.0},
		{models.EmotionAngry: 0.5, models.EmotionFearful: 0.5},
		{models.EmotionNeutral: 0.99, models.EmotionHappy: 0.01},
	}
	for i := 0; i < 50; i++ {
		m := s.Apply(detection(distributions[i%len(distributions)]))
		if m.Confidence < 0 || m.Confidence > 1 {
			t.Fatalf("confidence %.6f out of range on iteration %d", m.Confidence, i)
		}
	}
}

func TestSingleLabelAvoidsZeroDenominator(t *testing.T) {
	s := NewSmoother(0.7)

	m := s.Apply(detection(map[models.Emotion]float64{models.EmotionSad: 0.42}))

	if m.Emotion != models.EmotionSad {
		t.Fatalf("expected sad, got %s", m.Emotion)
	}
	want := 0.7 * 0.42
	if math.Abs(m.Confidence-want) > 1e-9 {
		t.Fatalf("expected confidence %.6f, got %.6f", want, m.Confidence)
	}
}

func TestNoDetectionHoldsLastValue(t *testing.T) {
	s := NewSmoother(0.7)

	before := s.Apply(detection(map[models.Emotion]float64{
		models.EmotionHappy:   0.6,
		models.EmotionNeutral: 0.4,
	}))

	after := s.Apply(nil)
	if after != before {
		t.Fatalf("metrics changed on detection loss: %+v != %+v", after, before)
	}

	after = s.Apply(&models.Detection{Expressions: map[models.Emotion]float64{}})
	if after != before {
		t.Fatalf("metrics changed on empty distribution: %+v != %+v", after, before)
	}
}
