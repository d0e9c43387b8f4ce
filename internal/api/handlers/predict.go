package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/forecast"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

// Predictor runs the forecast pipeline (forecast.Service)
type Predictor interface {
	Predict(ctx context.Context, req forecast.Request, observer forecast.Observer) (*contracts.PredictionResult, error)
}

// PredictRequest is the /predict body
type PredictRequest struct {
	Symbol       string `json:"symbol" validate:"required"`
	ForecastDays *int   `json:"forecast_days" default:"7" validate:"required,min=1"`
}

// Days returns forecast_days after bind (defaults applied)
func (p *PredictRequest) Days() int {
	if p.ForecastDays == nil {
		return 0
	}
	return *p.ForecastDays
}

// PredictHandler handles /predict and its websocket variant
// ⭐ SSOT: 예측 API 핸들러는 이 구조체에서만
type PredictHandler struct {
	predictor   Predictor
	defaultDays int
	logger      *logger.Logger
}

// NewPredictHandler creates a new predict handler.
// defaultDays replaces a missing forecast_days (FORECAST_DEFAULT_DAYS).
func NewPredictHandler(predictor Predictor, defaultDays int, log *logger.Logger) *PredictHandler {
	return &PredictHandler{
		predictor:   predictor,
		defaultDays: defaultDays,
		logger:      log,
	}
}

// Predict trains both models and returns the three forecasts
// POST /predict
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	req, err := h.bind(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	result, err := h.predictor.Predict(r.Context(), forecast.Request{
		Symbol:       req.Symbol,
		ForecastDays: req.Days(),
	}, nil)
	if err != nil {
		h.logFailure(err, req)
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// bind reads the JSON body (POST) or the query string (websocket GET).
// forecast_days 누락 시 FORECAST_DEFAULT_DAYS, 그것도 없으면 태그 기본값 7
func (h *PredictHandler) bind(r *http.Request) (*PredictRequest, error) {
	var req PredictRequest
	if r.Method == http.MethodGet {
		req.Symbol = r.URL.Query().Get("symbol")
		if raw := r.URL.Query().Get("forecast_days"); raw != "" {
			days, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &requestError{message: "forecast_days must be an integer"}
			}
			req.ForecastDays = &days
		}
	} else if err := bindBody(r, &req); err != nil {
		return nil, err
	}

	// nil = 필드 없음, 명시적 0은 min=1에서 400
	if req.ForecastDays == nil && h.defaultDays > 0 {
		days := h.defaultDays
		req.ForecastDays = &days
	}
	if err := finishRequest(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *PredictHandler) logFailure(err error, req *PredictRequest) {
	entry := h.logger.WithError(err).WithFields(map[string]interface{}{
		"symbol":        req.Symbol,
		"forecast_days": req.Days(),
		"kind":          contracts.ErrorKind(err),
	})
	if contracts.StatusCode(err) >= http.StatusInternalServerError {
		entry.Error("Prediction failed")
		return
	}
	entry.Warn("Prediction rejected")
}

// streamMessage is one websocket frame of /ws/predict
type streamMessage struct {
	Type   string                      `json:"type"` // event, result, error
	Event  *forecast.Event             `json:"event,omitempty"`
	Result *contracts.PredictionResult `json:"result,omitempty"`
	Error  string                      `json:"error,omitempty"`
	Status int                         `json:"status,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

const streamWriteWait = 10 * time.Second

// Stream runs a prediction and pushes stage events over a websocket
// GET /ws/predict?symbol=AAPL&forecast_days=7
func (h *PredictHandler) Stream(w http.ResponseWriter, r *http.Request) {
	// 잘못된 요청은 upgrade 전에 일반 HTTP 400으로 거절
	req, err := h.bind(r)
	if err != nil {
		respondErr(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 클라이언트가 끊으면 파이프라인도 취소
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(msg streamMessage) {
		conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.WithError(err).Debug("Websocket write failed")
			cancel()
		}
	}

	// Observer 호출은 파이프라인에서 직렬화됨
	result, err := h.predictor.Predict(ctx, forecast.Request{
		Symbol:       req.Symbol,
		ForecastDays: req.Days(),
	}, func(ev forecast.Event) {
		send(streamMessage{Type: "event", Event: &ev})
	})
	if err != nil {
		h.logFailure(err, req)
		send(streamMessage{Type: "error", Error: err.Error(), Status: contracts.StatusCode(err)})
	} else {
		send(streamMessage{Type: "result", Result: result})
	}

	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
