package indicator

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"backtest-lab/internal/domain"
)

var validate = validator.New()

type periodParams struct {
	Period int    `mapstructure:"period" validate:"gte=1"`
	Column string `mapstructure:"column" validate:"oneof=open high low close volume"`
}

type macdParams struct {
	Fast   int    `mapstructure:"fast" validate:"gte=1"`
	Slow   int    `mapstructure:"slow" validate:"gte=1"`
	Signal int    `mapstructure:"signal" validate:"gte=1"`
	Column string `mapstructure:"column" validate:"oneof=open high low close volume"`
}

type stochasticParams struct {
	Period  int `mapstructure:"period" validate:"gte=1"`
	SmoothK int `mapstructure:"smooth_k" validate:"gte=1"`
	SmoothD int `mapstructure:"smooth_d" validate:"gte=1"`
}

type bollingerParams struct {
	Period int     `mapstructure:"period" validate:"gte=1"`
	Std    float64 `mapstructure:"std" validate:"gt=0"`
	Column string  `mapstructure:"column" validate:"oneof=open high low close volume"`
}

type barsPeriodParams struct {
	Period int `mapstructure:"period" validate:"gte=1"`
}

type noParams struct{}

// integralFloatHook lets JSON numbers (always float64) fill int fields only
// when they carry no fractional part.
func integralFloatHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		v := reflect.ValueOf(data).Float()
		if math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, fmt.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	}
	return data, nil
}

// decodeParams decodes raw into out, which already holds the defaults.
// Unknown keys and out-of-range values are configuration errors.
func decodeParams(t domain.IndicatorType, raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		TagName:     "mapstructure",
		DecodeHook:  mapstructure.DecodeHookFuncType(integralFloatHook),
	})
	if err != nil {
		return fmt.Errorf("%w: %s parameters: %v", domain.ErrConfiguration, t, err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %s parameters: %v", domain.ErrConfiguration, t, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %s parameters: %v", domain.ErrConfiguration, t, err)
	}
	return nil
}
