package pd

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rcliao/ds-tutor/internal/value"
)

type aggregate func(s *Series) (starlark.Value, error)

var aggregates = map[string]aggregate{
	"sum":   aggSum,
	"mean":  aggMean,
	"min":   aggMin,
	"max":   aggMax,
	"count": aggCount,
	"std":   aggStd,
}

func aggSum(s *Series) (starlark.Value, error) {
	nums, err := s.numbers()
	if err != nil {
		return nil, err
	}
	var total float64
	for _, f := range nums {
		total += f
	}
	if s.dtype == Float64 {
		return starlark.Float(total), nil
	}
	return starlark.MakeInt64(int64(total)), nil
}

func aggMean(s *Series) (starlark.Value, error) {
	nums, err := s.numbers()
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return starlark.Float(math.NaN()), nil
	}
	var total float64
	for _, f := range nums {
		total += f
	}
	return starlark.Float(total / float64(len(nums))), nil
}

func aggMin(s *Series) (starlark.Value, error) {
	return extreme(s, syntax.LT)
}

func aggMax(s *Series) (starlark.Value, error) {
	return extreme(s, syntax.GT)
}

// extreme returns the non-null cell that wins every comparison under op.
func extreme(s *Series, op syntax.Token) (starlark.Value, error) {
	var best starlark.Value
	for _, v := range s.values {
		if value.IsNull(v) {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		cmp, err := starlark.Compare(op, v, best)
		if err != nil {
			return nil, fmt.Errorf("cannot compare values in column %q: %w", s.name, err)
		}
		if cmp {
			best = v
		}
	}
	if best == nil {
		return starlark.Float(math.NaN()), nil
	}
	return best, nil
}

func aggCount(s *Series) (starlark.Value, error) {
	return starlark.MakeInt(len(s.values) - s.nulls()), nil
}

// aggStd is the sample standard deviation (one delta degree of freedom).
func aggStd(s *Series) (starlark.Value, error) {
	nums, err := s.numbers()
	if err != nil {
		return nil, err
	}
	if len(nums) < 2 {
		return starlark.Float(math.NaN()), nil
	}
	var mean float64
	for _, f := range nums {
		mean += f
	}
	mean /= float64(len(nums))
	var ss float64
	for _, f := range nums {
		ss += (f - mean) * (f - mean)
	}
	return starlark.Float(math.Sqrt(ss / float64(len(nums)-1))), nil
}
