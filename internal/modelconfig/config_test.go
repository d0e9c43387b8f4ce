package modelconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/internal/contracts"
)

func TestLoad(t *testing.T) {
	// 저장소에 포함된 기본 설정 파일
	path := "../../config/models.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)

	assert.Equal(t, "default", cfg.Meta.Name)
	assert.Equal(t, 16, cfg.Sequence.Hidden)
	assert.Equal(t, 100, cfg.Tree.Rounds)
	require.NotNil(t, cfg.Blend)
	assert.Equal(t, 0.5, cfg.Blend.LSTM)

	// 기본값과 동일 → 동일 해시 (blend 제외)
	fromFile := *cfg
	fromFile.Blend = nil
	h1, err := Hash(&fromFile)
	require.NoError(t, err)
	h2, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, h2, h1)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, data, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_PartialOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("sequence:\n  epochs: 5\ntree:\n  max_depth: 4\n"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Sequence.Epochs)
	assert.Equal(t, 16, cfg.Sequence.Hidden) // default 유지
	assert.Equal(t, 4, cfg.Tree.MaxDepth)
	assert.Equal(t, 100, cfg.Tree.Rounds)
	assert.Nil(t, cfg.Blend)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("sequence:\n  hiden: 8\n"))
	assert.ErrorContains(t, err, "hiden")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantField string
	}{
		{"hidden zero", "sequence:\n  hidden: 0\n", "sequence.hidden"},
		{"learning rate", "sequence:\n  learning_rate: 2\n", "sequence.learning_rate"},
		{"tree depth", "tree:\n  max_depth: 50\n", "tree.max_depth"},
		{"colsample", "tree:\n  colsample: 0\n", "tree.colsample"},
		{"min leaf", "tree:\n  min_samples_leaf: 0\n", "tree.min_samples_leaf"},
		{"blend sum", "blend:\n  lstm: 0.7\n  xgboost: 0.7\n", "blend"},
		{"blend range", "blend:\n  lstm: 1.5\n  xgboost: -0.5\n", "blend.lstm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestWeights(t *testing.T) {
	fallback := contracts.BlendWeights{contracts.ModelLSTM: 0.3, contracts.ModelXGBoost: 0.7}

	assert.Equal(t, fallback, Default().Weights(fallback))

	var nilCfg *Config
	assert.Equal(t, fallback, nilCfg.Weights(fallback))

	cfg, err := Parse([]byte("blend:\n  lstm: 0.8\n  xgboost: 0.2\n"))
	require.NoError(t, err)
	assert.Equal(t, contracts.BlendWeights{contracts.ModelLSTM: 0.8, contracts.ModelXGBoost: 0.2}, cfg.Weights(fallback))
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Sequence.LearningRate = 0.1
	cfg.Sequence.ClipNorm = 0
	cfg.Tree.Rounds = 5

	codes := make([]string, 0)
	for _, w := range Warn(cfg) {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"SEQUENCE_LR_HIGH", "SEQUENCE_NO_CLIP", "TREE_UNDERFIT"}, codes)
}

func TestNewSnapshot(t *testing.T) {
	snap, err := NewSnapshot(Default(), []byte("meta: {}"))
	require.NoError(t, err)
	assert.Len(t, snap.ConfigHash, 64)
	assert.Equal(t, "default", snap.Name)
	assert.Equal(t, "meta: {}", snap.ConfigYAML)
}
