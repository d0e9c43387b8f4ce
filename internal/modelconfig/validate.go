package modelconfig

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var validate = newValidator()

// newValidator reports fields by their yaml names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct tag constraints and cross-field rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Message: fmt.Sprintf("failed '%s' (%s)", fe.Tag(), fe.Param()),
			}
		}
		return err
	}

	// === Blend ===
	if b := cfg.Blend; b != nil {
		if math.Abs(b.LSTM+b.XGBoost-1.0) > 1e-6 {
			return ValidationError{"blend", fmt.Sprintf("weights must sum to 1.0, got %.4f", b.LSTM+b.XGBoost)}
		}
	}

	return nil
}

// Warn returns recommendations that do not block startup
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Sequence.LearningRate > 0.05 {
		warnings = append(warnings, Warning{
			Code:    "SEQUENCE_LR_HIGH",
			Message: fmt.Sprintf("sequence.learning_rate=%.4f may diverge (recommended <= 0.05)", cfg.Sequence.LearningRate),
		})
	}
	if cfg.Sequence.ClipNorm == 0 {
		warnings = append(warnings, Warning{
			Code:    "SEQUENCE_NO_CLIP",
			Message: "sequence.clip_norm=0 disables gradient clipping",
		})
	}
	// 부스팅 총 학습량이 너무 작으면 underfit
	if float64(cfg.Tree.Rounds)*cfg.Tree.LearningRate < 1 {
		warnings = append(warnings, Warning{
			Code:    "TREE_UNDERFIT",
			Message: fmt.Sprintf("tree.rounds × tree.learning_rate = %.2f < 1", float64(cfg.Tree.Rounds)*cfg.Tree.LearningRate),
		})
	}

	return warnings
}

// fieldPath turns "Config.tree.min_samples_leaf" into "tree.min_samples_leaf"
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
