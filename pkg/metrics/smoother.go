package metrics

import (
	"interview-engine/pkg/models"
)

// Smoother converts raw expression distributions into stable FaceMetrics.
// The label is the argmax of the distribution; confidence is the dominance
// of the top label over the runner-up, exponentially blended against the
// previous confidence to suppress frame-to-frame flicker.
type Smoother struct {
	blend   float64
	current models.FaceMetrics
}

// NewSmoother creates a smoother. blend is the weight of the newest
// sample; values outside (0, 1] fall back to 0.7.
func NewSmoother(blend float64) *Smoother {
	if blend <= 0 || blend > 1 {
		blend = 0.7
	}
	return &Smoother{blend: blend}
}

// Apply folds one detection into the metrics. A nil detection leaves the
// metrics at their last known value so intermittent detection loss does
// not flicker the readout.
func (s *Smoother) Apply(det *models.Detection) models.FaceMetrics {
	if det == nil || len(det.Expressions) == 0 {
		return s.current
	}

	var (
		top     models.Emotion
		topP    float64
		secondP float64
		seen    int
	)
	for label, p := range det.Expressions {
		seen++
		switch {
		case p > topP || top == "":
			secondP = topP
			top, topP = label, p
		case p > secondP:
			secondP = p
		}
	}

	raw := topP
	if seen > 1 && topP+secondP > 0 {
		raw = topP / (topP + secondP)
	}

	conf := s.blend*raw + (1-s.blend)*s.current.Confidence
	conf = clamp01(conf)

	s.current = models.FaceMetrics{Emotion: top, Confidence: conf, Box: det.Box}
	return s.current
}

// Current returns the last computed metrics.
func (s *Smoother) Current() models.FaceMetrics {
	return s.current
}

// Reset clears the metrics, e.g. between questions.
func (s *Smoother) Reset() {
	s.current = models.FaceMetrics{}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
