package regroup

import "math"

// BaseLog is the logarithm used to space bucket boundaries. Log and Exp must
// be inverses of each other.
type BaseLog interface {
	Log(x float32) float32
	Exp(x float32) float32
}

var (
	Log2  BaseLog = log2{}
	LogE  BaseLog = logE{}
	Log10 BaseLog = log10{}
)

type log2 struct{}

func (log2) Log(x float32) float32 { return float32(math.Log2(float64(x))) }
func (log2) Exp(x float32) float32 { return float32(math.Exp2(float64(x))) }

type logE struct{}

func (logE) Log(x float32) float32 { return float32(math.Log(float64(x))) }
func (logE) Exp(x float32) float32 { return float32(math.Exp(float64(x))) }

type log10 struct{}

func (log10) Log(x float32) float32 { return float32(math.Log10(float64(x))) }
func (log10) Exp(x float32) float32 { return float32(math.Pow(10, float64(x))) }
