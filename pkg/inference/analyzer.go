package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"interview-engine/pkg/models"
)

// Analyzer submits single video frames to the face-analysis service.
// It is stateless and frame-order-agnostic; callers are responsible
// for frame-skipping when analysis cannot keep pace.
type Analyzer struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

func NewAnalyzer(baseURL string, timeout time.Duration, log *logrus.Entry) *Analyzer {
	return &Analyzer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type analyzeResp struct {
	Face *struct {
		Box         models.BoundingBox `json:"box"`
		Expressions map[string]float64 `json:"expressions"`
	} `json:"face"`
}

// Analyze runs one frame through the model. A nil detection with a nil
// error means no face was found, which is a normal outcome.
func (a *Analyzer) Analyze(ctx context.Context, frame []byte, model *ModelHandle) (*models.Detection, error) {
	if model == nil {
		return nil, models.ErrModelUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Model-Version", model.Version)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("analyze %s: %s", resp.Status, string(body))
	}

	var out analyzeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("analyze decode: %w", err)
	}
	if out.Face == nil {
		return nil, nil
	}

	// The service's expression shape is open-ended; pin it to the closed
	// label set here, at the boundary.
	expressions := make(map[models.Emotion]float64, len(out.Face.Expressions))
	for label, p := range out.Face.Expressions {
		e := models.Emotion(label)
		if !models.KnownEmotion(e) {
			a.log.WithField("label", label).Debug("dropping unknown expression label")
			continue
		}
		expressions[e] = p
	}
	if len(expressions) == 0 {
		return nil, fmt.Errorf("analyze: no recognized expression labels in response")
	}

	return &models.Detection{Box: out.Face.Box, Expressions: expressions}, nil
}
