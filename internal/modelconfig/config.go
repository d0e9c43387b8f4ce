package modelconfig

import (
	"time"

	"github.com/wonny/stockcast/backend/internal/contracts"
	"github.com/wonny/stockcast/backend/internal/model"
)

// Config는 예측 모델 하이퍼파라미터 전체 설정
type Config struct {
	Meta     Meta                 `yaml:"meta" json:"meta"`
	Sequence model.SequenceConfig `yaml:"sequence" json:"sequence"`
	Tree     model.TreeConfig     `yaml:"tree" json:"tree"`
	Blend    *Blend               `yaml:"blend,omitempty" json:"blend,omitempty"`
}

// Meta 메타 정보
type Meta struct {
	Name    string `yaml:"name" json:"name" default:"default"`
	Version string `yaml:"version" json:"version" default:"1"`
}

// Blend hybrid 가중치 (optional: 없으면 환경변수 값 사용)
type Blend struct {
	LSTM    float64 `yaml:"lstm" json:"lstm" validate:"gte=0,lte=1"`
	XGBoost float64 `yaml:"xgboost" json:"xgboost" validate:"gte=0,lte=1"`
}

// Weights returns the blend weights, falling back when the file sets none
func (c *Config) Weights(fallback contracts.BlendWeights) contracts.BlendWeights {
	if c == nil || c.Blend == nil {
		return fallback
	}
	return contracts.BlendWeights{
		contracts.ModelLSTM:    c.Blend.LSTM,
		contracts.ModelXGBoost: c.Blend.XGBoost,
	}
}

// Snapshot identifies the configuration a forecast was produced with
type Snapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	Name       string    `json:"name"`
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loaded_at"`
}
